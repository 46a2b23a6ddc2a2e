package store

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-bodytune/internal/db"
	"backend-bodytune/internal/run"
)

type PostgresStore struct {
	db db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{db: q}
}

func (s *PostgresStore) SaveRunning(ctx context.Context, session run.RunningSession) error {
	route, err := json.Marshal(routeOrEmpty(session.Route))
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}
	stats, err := json.Marshal(session.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO running_sessions (id, user_id, start_time, end_time, duration_ms, distance_km, average_pace, calories, route, stats)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			end_time = EXCLUDED.end_time,
			duration_ms = EXCLUDED.duration_ms,
			distance_km = EXCLUDED.distance_km,
			average_pace = EXCLUDED.average_pace,
			calories = EXCLUDED.calories,
			route = EXCLUDED.route,
			stats = EXCLUDED.stats
	`, session.SessionID, session.UserID, session.StartTime, session.EndTime, session.Duration,
		session.DistanceKm, session.AveragePace, session.Calories, route, stats)
	if err != nil {
		return fmt.Errorf("save running session: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveWorkout(ctx context.Context, session WorkoutSession) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO workout_sessions (id, user_id, workout_type, exercise_name, duration_ms, calories_burned, start_time, end_time, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`, session.SessionID, session.UserID, session.WorkoutType, session.ExerciseName, session.Duration,
		session.CaloriesBurned, session.StartTime, session.EndTime, session.Notes, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("save workout session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRunning(ctx context.Context, userID string) ([]run.RunningSession, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, start_time, end_time, duration_ms, distance_km, average_pace, calories, route, stats
		FROM running_sessions WHERE user_id=$1
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []run.RunningSession
	for rows.Next() {
		var (
			rs           run.RunningSession
			route, stats []byte
		)
		if err := rows.Scan(&rs.SessionID, &rs.UserID, &rs.StartTime, &rs.EndTime, &rs.Duration,
			&rs.DistanceKm, &rs.AveragePace, &rs.Calories, &route, &stats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(route, &rs.Route); err != nil {
			return nil, fmt.Errorf("decode route of %s: %w", rs.SessionID, err)
		}
		if err := json.Unmarshal(stats, &rs.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of %s: %w", rs.SessionID, err)
		}
		sessions = append(sessions, rs)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) ListWorkouts(ctx context.Context, userID string) ([]WorkoutSession, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, workout_type, exercise_name, duration_ms, calories_burned, start_time, end_time, notes, created_at
		FROM workout_sessions WHERE user_id=$1
		ORDER BY start_time DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []WorkoutSession
	for rows.Next() {
		var ws WorkoutSession
		if err := rows.Scan(&ws.SessionID, &ws.UserID, &ws.WorkoutType, &ws.ExerciseName, &ws.Duration,
			&ws.CaloriesBurned, &ws.StartTime, &ws.EndTime, &ws.Notes, &ws.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, ws)
	}
	return sessions, rows.Err()
}

func routeOrEmpty(route []run.RoutePoint) []run.RoutePoint {
	if route == nil {
		return []run.RoutePoint{}
	}
	return route
}
