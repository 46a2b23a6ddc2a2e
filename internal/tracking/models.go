package tracking

import (
	"backend-bodytune/internal/location"
	"backend-bodytune/internal/run"
	"backend-bodytune/internal/store"
	"backend-bodytune/internal/timer"
)

type StartRequest struct {
	UserID string `json:"-"`
	// WeightKg overrides the profile weight for the calorie estimate.
	WeightKg float64 `json:"weight_kg"`
	// TargetDurationSec turns the run into a countdown that finishes on its own. Zero is a free run.
	TargetDurationSec int64                 `json:"target_duration_sec"`
	Location          location.Capabilities `json:"location"`
}

type FixRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	// Timestamp is epoch milliseconds; zero means now.
	Timestamp int64 `json:"timestamp"`
}

type LocationErrorRequest struct {
	Message string `json:"message"`
}

// LiveState is what clients render for a run in progress or just finished.
type LiveState struct {
	RunID       string            `json:"run_id"`
	SessionID   string            `json:"session_id"`
	UserID      string            `json:"user_id"`
	Phase       timer.Phase       `json:"phase"`
	Source      string            `json:"source"`
	StartedAt   int64             `json:"started_at"`
	ElapsedMs   int64             `json:"elapsed_ms"`
	Elapsed     string            `json:"elapsed"`
	TargetMs    int64             `json:"target_ms,omitempty"`
	RemainingMs int64             `json:"remaining_ms,omitempty"`
	DistanceKm  float64           `json:"distance_km"`
	Pace        string            `json:"pace"`
	Calories    int               `json:"calories"`
	Points      int               `json:"points"`
	Stats       run.RunningStats  `json:"stats"`
	Save        *store.SaveResult `json:"save,omitempty"`
}

type FixResult struct {
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason,omitempty"`
	State    LiveState `json:"state"`
}

type StopResult struct {
	Session run.RunningSession `json:"session"`
	Saved   bool               `json:"saved"`
	Error   string             `json:"error,omitempty"`
}
