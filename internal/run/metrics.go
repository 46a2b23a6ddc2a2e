package run

import (
	"fmt"
	"math"
)

const (
	// DefaultWeightKg is used for calorie estimates when the runner's weight is unknown.
	DefaultWeightKg = 70.0

	// PaceSentinel is reported while no distance has been covered.
	PaceSentinel = `0'00"`

	caloriesPerKgKm = 0.75
)

// Pace formats minutes per kilometer as M'SS".
func Pace(elapsedMs int64, distanceKm float64) string {
	if elapsedMs <= 0 || !(distanceKm > 0) {
		return PaceSentinel
	}
	paceMinutes := float64(elapsedMs) / 60000 / distanceKm
	if math.IsInf(paceMinutes, 0) || math.IsNaN(paceMinutes) {
		return PaceSentinel
	}

	minutes := int64(paceMinutes)
	seconds := int64(math.Round((paceMinutes - float64(minutes)) * 60))
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf("%d'%02d\"", minutes, seconds)
}

// Calories estimates energy for a run as 0.75 kcal per kg of body weight per km.
func Calories(distanceKm, weightKg float64) int {
	if !(distanceKm > 0) {
		return 0
	}
	if !(weightKg > 0) {
		weightKg = DefaultWeightKg
	}
	return int(caloriesPerKgKm * weightKg * distanceKm)
}

// FormatDuration renders milliseconds as MM:SS.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
