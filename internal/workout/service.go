package workout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"backend-bodytune/internal/store"
	"backend-bodytune/internal/stream"
	"backend-bodytune/internal/timer"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrInvalidRequest  = errors.New("invalid workout request")
	ErrWorkoutActive   = errors.New("user already has an active workout")
)

type Config struct {
	TickInterval     time.Duration
	ExerciseDuration time.Duration
	Clock            timer.Clock
}

type Service struct {
	cfg        Config
	hub        *stream.Hub
	dispatcher *store.Dispatcher
	sessions   store.SessionStore
	log        *zap.Logger

	mu       sync.RWMutex
	workouts map[string]*liveWorkout
}

type liveWorkout struct {
	id          string
	userID      string
	workoutType string
	exercises   []timer.Exercise
	seq         *timer.Sequence

	mu        sync.Mutex
	sessionID string
	session   *store.WorkoutSession
	save      *store.SaveResult
}

func NewService(cfg Config, hub *stream.Hub, dispatcher *store.Dispatcher, sessions store.SessionStore, logger *zap.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = timer.RealClock
	}
	if cfg.ExerciseDuration <= 0 {
		cfg.ExerciseDuration = 3 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = store.NewDispatcher(sessions, 0, logger)
	}
	return &Service{
		cfg:        cfg,
		hub:        hub,
		dispatcher: dispatcher,
		sessions:   sessions,
		log:        logger,
		workouts:   map[string]*liveWorkout{},
	}
}

func (s *Service) Start(req StartRequest) (LiveState, error) {
	if req.UserID == "" {
		return LiveState{}, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	if len(req.Exercises) == 0 {
		return LiveState{}, fmt.Errorf("%w: at least one exercise required", ErrInvalidRequest)
	}
	exercises := make([]timer.Exercise, 0, len(req.Exercises))
	for _, ex := range req.Exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return LiveState{}, fmt.Errorf("%w: exercise name required", ErrInvalidRequest)
		}
		if ex.DurationSec < 0 {
			return LiveState{}, fmt.Errorf("%w: negative duration for %s", ErrInvalidRequest, ex.Name)
		}
		d := time.Duration(ex.DurationSec) * time.Second
		if d == 0 {
			d = s.cfg.ExerciseDuration
		}
		exercises = append(exercises, timer.Exercise{Name: ex.Name, Duration: d})
	}
	workoutType := req.WorkoutType
	if workoutType == "" {
		workoutType = "Custom"
	}

	id := uuid.NewString()
	lw := &liveWorkout{
		id:          id,
		userID:      req.UserID,
		workoutType: workoutType,
		exercises:   exercises,
		sessionID:   id,
	}
	seq, err := timer.NewSequence(exercises, func(r timer.SequenceResult) { s.complete(lw, r) },
		timer.WithClock(s.cfg.Clock),
		timer.WithTickInterval(s.cfg.TickInterval))
	if err != nil {
		return LiveState{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	lw.seq = seq

	if err := s.reserve(lw); err != nil {
		return LiveState{}, err
	}
	if err := seq.Start(); err != nil {
		s.release(id)
		return LiveState{}, err
	}
	s.log.Info("workout started",
		zap.String("workout_id", id),
		zap.String("user_id", req.UserID),
		zap.String("workout_type", workoutType),
		zap.Int("exercises", len(exercises)))
	return s.publishState(lw), nil
}

func (s *Service) Pause(id, userID string) (LiveState, error) {
	return s.control(id, userID, (*timer.Sequence).Pause)
}

func (s *Service) Resume(id, userID string) (LiveState, error) {
	return s.control(id, userID, (*timer.Sequence).Resume)
}

func (s *Service) Next(id, userID string) (LiveState, error) {
	return s.control(id, userID, (*timer.Sequence).Next)
}

func (s *Service) Skip(id, userID string) (LiveState, error) {
	return s.control(id, userID, (*timer.Sequence).Skip)
}

func (s *Service) Previous(id, userID string) (LiveState, error) {
	return s.control(id, userID, (*timer.Sequence).Previous)
}

func (s *Service) Finish(id, userID string) (LiveState, error) {
	return s.control(id, userID, func(seq *timer.Sequence) error {
		_, err := seq.Finish()
		return err
	})
}

func (s *Service) Restart(id, userID string) (LiveState, error) {
	lw, err := s.get(id, userID)
	if err != nil {
		return LiveState{}, err
	}
	if err := lw.seq.Restart(); err != nil {
		return LiveState{}, err
	}
	lw.mu.Lock()
	lw.sessionID = uuid.NewString()
	lw.session = nil
	lw.save = nil
	lw.mu.Unlock()
	return s.publishState(lw), nil
}

func (s *Service) Discard(id, userID string) error {
	lw, err := s.get(id, userID)
	if err != nil {
		return err
	}
	lw.seq.Cancel()
	s.mu.Lock()
	delete(s.workouts, id)
	s.mu.Unlock()
	return nil
}

func (s *Service) State(id, userID string) (LiveState, error) {
	lw, err := s.get(id, userID)
	if err != nil {
		return LiveState{}, err
	}
	return s.state(lw), nil
}

func (s *Service) History(ctx context.Context, userID string) ([]store.WorkoutSession, error) {
	if s.sessions == nil {
		return nil, store.ErrNoStore
	}
	return s.sessions.ListWorkouts(ctx, userID)
}

func (s *Service) Snapshot(id string) (any, bool) {
	lw, err := s.get(id, "")
	if err != nil {
		return nil, false
	}
	return s.state(lw), true
}

// Close cancels every live workout without saving.
func (s *Service) Close() {
	s.mu.Lock()
	workouts := lo.Values(s.workouts)
	s.workouts = map[string]*liveWorkout{}
	s.mu.Unlock()
	for _, lw := range workouts {
		lw.seq.Cancel()
	}
}

func (s *Service) control(id, userID string, apply func(*timer.Sequence) error) (LiveState, error) {
	lw, err := s.get(id, userID)
	if err != nil {
		return LiveState{}, err
	}
	if err := apply(lw.seq); err != nil {
		return LiveState{}, err
	}
	return s.publishState(lw), nil
}

// complete runs once per session-level finish, on whichever goroutine ended it.
func (s *Service) complete(lw *liveWorkout, r timer.SequenceResult) {
	names := lo.Map(lw.exercises, func(ex timer.Exercise, _ int) string { return ex.Name })
	lw.mu.Lock()
	session := store.WorkoutSession{
		SessionID:      lw.sessionID,
		UserID:         lw.userID,
		WorkoutType:    lw.workoutType,
		ExerciseName:   strings.Join(names, ", "),
		Duration:       r.Elapsed.Milliseconds(),
		CaloriesBurned: Calories(r.Elapsed, r.Completed),
		StartTime:      r.StartedAt.UnixMilli(),
		EndTime:        r.EndedAt.UnixMilli(),
		Notes:          fmt.Sprintf("Completed %d/%d exercises", r.Completed, r.Total),
		CreatedAt:      r.EndedAt.UnixMilli(),
	}
	lw.session = &session
	lw.mu.Unlock()

	s.log.Info("workout finished",
		zap.String("workout_id", lw.id),
		zap.Bool("natural", r.Natural),
		zap.Int("completed", r.Completed),
		zap.Int("skipped", r.Skipped))
	s.publish(lw.id, stream.EventWorkoutFinished, session)

	saved := <-s.dispatcher.SaveWorkout(session)
	lw.mu.Lock()
	if lw.sessionID == session.SessionID {
		lw.save = &saved
	}
	lw.mu.Unlock()
	if saved.OK {
		s.publish(lw.id, stream.EventSessionSaved, saved)
	} else {
		s.publish(lw.id, stream.EventSaveFailed, saved)
	}
}

// reserve registers lw as the user's only live workout. Finished workouts of
// the same user are dropped; an unfinished one blocks the start.
func (s *Service) reserve(lw *liveWorkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.workouts {
		if other.userID != lw.userID {
			continue
		}
		if other.seq.Phase() != timer.Finished {
			return fmt.Errorf("%w: %s", ErrWorkoutActive, id)
		}
		delete(s.workouts, id)
	}
	s.workouts[lw.id] = lw
	return nil
}

func (s *Service) release(id string) {
	s.mu.Lock()
	delete(s.workouts, id)
	s.mu.Unlock()
}

func (s *Service) state(lw *liveWorkout) LiveState {
	seq := lw.seq.State()

	lw.mu.Lock()
	defer lw.mu.Unlock()
	st := LiveState{
		WorkoutID:     lw.id,
		SessionID:     lw.sessionID,
		UserID:        lw.userID,
		WorkoutType:   lw.workoutType,
		SequenceState: seq,
		Calories:      Calories(time.Duration(seq.ElapsedMs)*time.Millisecond, seq.Completed),
		Session:       lw.session,
		Save:          lw.save,
	}
	if lw.session != nil {
		st.Calories = lw.session.CaloriesBurned
	}
	return st
}

func (s *Service) publishState(lw *liveWorkout) LiveState {
	st := s.state(lw)
	s.publish(lw.id, stream.EventWorkoutState, st)
	return st
}

func (s *Service) get(id, userID string) (*liveWorkout, error) {
	s.mu.RLock()
	lw, ok := s.workouts[id]
	s.mu.RUnlock()
	if !ok || (userID != "" && lw.userID != userID) {
		return nil, ErrWorkoutNotFound
	}
	return lw, nil
}

func (s *Service) publish(id, eventType string, data any) {
	if s.hub != nil {
		s.hub.Publish(id, eventType, data)
	}
}
