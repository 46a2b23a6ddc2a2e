package workout

import "time"

const (
	caloriesPerMinute   = 5
	caloriesPerExercise = 10
)

// Calories estimates a workout's burn from whole minutes of active time and
// exercises that ran to completion.
func Calories(elapsed time.Duration, completed int) int {
	if elapsed < 0 {
		elapsed = 0
	}
	if completed < 0 {
		completed = 0
	}
	return caloriesPerMinute*int(elapsed/time.Minute) + caloriesPerExercise*completed
}
