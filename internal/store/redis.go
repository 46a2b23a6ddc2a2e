package store

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-bodytune/internal/run"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// RedisStore keeps each session as a JSON document under
// running_sessions:{userId}:{sessionId} or workouts:{userId}:{sessionId},
// with a per-user sorted set of session ids scored by start time.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveRunning(ctx context.Context, session run.RunningSession) error {
	session.Route = routeOrEmpty(session.Route)
	return s.save(ctx, runningPrefix, session.UserID, session.SessionID, session.StartTime, session)
}

func (s *RedisStore) SaveWorkout(ctx context.Context, session WorkoutSession) error {
	return s.save(ctx, workoutPrefix, session.UserID, session.SessionID, session.StartTime, session)
}

func (s *RedisStore) ListRunning(ctx context.Context, userID string) ([]run.RunningSession, error) {
	docs, err := s.list(ctx, runningPrefix, userID)
	if err != nil {
		return nil, err
	}
	return decodeAll[run.RunningSession](docs)
}

func (s *RedisStore) ListWorkouts(ctx context.Context, userID string) ([]WorkoutSession, error) {
	docs, err := s.list(ctx, workoutPrefix, userID)
	if err != nil {
		return nil, err
	}
	return decodeAll[WorkoutSession](docs)
}

func (s *RedisStore) save(ctx context.Context, prefix, userID, sessionID string, startTime int64, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", prefix, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, documentKey(prefix, userID, sessionID), data, 0)
		pipe.ZAdd(ctx, indexKey(prefix, userID), redis.Z{Score: float64(startTime), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", prefix, err)
	}
	return nil
}

func (s *RedisStore) list(ctx context.Context, prefix, userID string) ([]string, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey(prefix, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return documentKey(prefix, userID, id) })
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", prefix, err)
	}
	// Index entries whose document is gone come back as nil.
	return lo.FilterMap(values, func(v any, _ int) (string, bool) {
		doc, ok := v.(string)
		return doc, ok
	}), nil
}

func decodeAll[T any](docs []string) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

const (
	runningPrefix = "running_sessions"
	workoutPrefix = "workouts"
)

func documentKey(prefix, userID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, userID, sessionID)
}

func indexKey(prefix, userID string) string {
	return fmt.Sprintf("%s:%s", prefix, userID)
}
