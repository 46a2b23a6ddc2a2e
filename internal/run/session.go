package run

import "time"

// NewSession freezes the accumulator state into a finished run.
func NewSession(sessionID, userID string, start, end time.Time, elapsed time.Duration, acc *Accumulator, weightKg float64) RunningSession {
	elapsedMs := elapsed.Milliseconds()
	distance := acc.DistanceKm()
	return RunningSession{
		SessionID:   sessionID,
		UserID:      userID,
		StartTime:   start.UnixMilli(),
		EndTime:     end.UnixMilli(),
		Duration:    elapsedMs,
		DistanceKm:  distance,
		AveragePace: Pace(elapsedMs, distance),
		Calories:    Calories(distance, weightKg),
		Route:       acc.Route(),
		Stats:       acc.Stats(elapsedMs),
	}
}
