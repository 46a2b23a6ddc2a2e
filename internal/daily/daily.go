package daily

import (
	"context"
	"math"
	"time"

	"backend-bodytune/internal/nutrition"
	"backend-bodytune/internal/run"
	"backend-bodytune/internal/store"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Summary struct {
	Date           string                   `json:"date"`
	Nutrition      nutrition.DailyNutrition `json:"nutrition"`
	Workouts       []store.WorkoutSession   `json:"workouts"`
	Runs           []run.RunningSession     `json:"runs"`
	ActiveMs       int64                    `json:"active_ms"`
	CaloriesBurned int                      `json:"calories_burned"`
	DistanceKm     float64                  `json:"distance_km"`
	Score          int                      `json:"score"`
}

type NutritionSource interface {
	Daily(ctx context.Context, userID, date string) (nutrition.DailyNutrition, error)
}

type Service struct {
	nutrition NutritionSource
	sessions  store.SessionStore
	loc       *time.Location
	log       *zap.Logger
}

// NewService builds the summary service. Sessions may be nil when no session
// store is configured; the day then has no runs or workouts.
func NewService(nutrition NutritionSource, sessions store.SessionStore, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{nutrition: nutrition, sessions: sessions, loc: loc, log: logger.Named("daily")}
}

// Score weighs calorie goal progress at 40 points and awards 30 each for a
// workout and a run on the day.
func Score(progressPct float64, workedOut, ran bool) int {
	pct := int(math.Min(math.Max(progressPct, 0), 100))
	score := int(float64(pct) * 0.4)
	if workedOut {
		score += 30
	}
	if ran {
		score += 30
	}
	return lo.Clamp(score, 0, 100)
}

func (s *Service) Summary(ctx context.Context, userID, date string) (Summary, error) {
	day, err := s.nutrition.Daily(ctx, userID, date)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Date:      day.Date,
		Nutrition: day,
		Workouts:  []store.WorkoutSession{},
		Runs:      []run.RunningSession{},
	}
	if s.sessions != nil {
		workouts, err := s.sessions.ListWorkouts(ctx, userID)
		if err != nil {
			return Summary{}, err
		}
		runs, err := s.sessions.ListRunning(ctx, userID)
		if err != nil {
			return Summary{}, err
		}
		sum.Workouts = lo.Filter(workouts, func(w store.WorkoutSession, _ int) bool {
			return s.dayOf(w.StartTime) == day.Date
		})
		sum.Runs = lo.Filter(runs, func(r run.RunningSession, _ int) bool {
			return s.dayOf(r.StartTime) == day.Date
		})
	}

	sum.ActiveMs = lo.SumBy(sum.Workouts, func(w store.WorkoutSession) int64 { return w.Duration }) +
		lo.SumBy(sum.Runs, func(r run.RunningSession) int64 { return r.Duration })
	sum.CaloriesBurned = lo.SumBy(sum.Workouts, func(w store.WorkoutSession) int { return w.CaloriesBurned }) +
		lo.SumBy(sum.Runs, func(r run.RunningSession) int { return r.Calories })
	sum.DistanceKm = math.Round(lo.SumBy(sum.Runs, func(r run.RunningSession) float64 { return r.DistanceKm })*100) / 100
	sum.Score = Score(day.ProgressPct, len(sum.Workouts) > 0, len(sum.Runs) > 0)

	s.log.Debug("daily summary",
		zap.String("user_id", userID),
		zap.String("date", sum.Date),
		zap.Int("score", sum.Score))
	return sum, nil
}

func (s *Service) dayOf(epochMs int64) string {
	return time.UnixMilli(epochMs).In(s.loc).Format(nutrition.DateLayout)
}
