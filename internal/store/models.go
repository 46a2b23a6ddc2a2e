package store

import (
	"context"

	"backend-bodytune/internal/run"
)

// WorkoutSession is a finished workout as kept by the session store. Times are epoch milliseconds.
type WorkoutSession struct {
	SessionID      string `json:"sessionId"`
	UserID         string `json:"userId"`
	WorkoutType    string `json:"workoutType"`
	ExerciseName   string `json:"exerciseName"`
	Duration       int64  `json:"duration"`
	CaloriesBurned int    `json:"caloriesBurned"`
	StartTime      int64  `json:"startTime"`
	EndTime        int64  `json:"endTime"`
	Notes          string `json:"notes"`
	CreatedAt      int64  `json:"createdAt"`
}

// SessionStore persists finished sessions. Lists are newest first.
type SessionStore interface {
	SaveRunning(ctx context.Context, session run.RunningSession) error
	SaveWorkout(ctx context.Context, session WorkoutSession) error
	ListRunning(ctx context.Context, userID string) ([]run.RunningSession, error)
	ListWorkouts(ctx context.Context, userID string) ([]WorkoutSession, error)
}
