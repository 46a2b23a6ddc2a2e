package workout

import (
	"backend-bodytune/internal/store"
	"backend-bodytune/internal/timer"
)

type ExerciseRequest struct {
	Name string `json:"name"`
	// DurationSec of zero takes the configured default.
	DurationSec int64 `json:"duration_sec"`
}

type StartRequest struct {
	UserID      string            `json:"-"`
	WorkoutType string            `json:"workout_type"`
	Exercises   []ExerciseRequest `json:"exercises"`
}

type LiveState struct {
	WorkoutID   string `json:"workout_id"`
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	WorkoutType string `json:"workout_type"`
	timer.SequenceState
	Calories int                   `json:"calories"`
	Session  *store.WorkoutSession `json:"session,omitempty"`
	Save     *store.SaveResult     `json:"save,omitempty"`
}
