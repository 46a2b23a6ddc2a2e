package bmi

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidMeasurement = errors.New("invalid measurement")

const (
	Underweight = "Underweight"
	Normal      = "Normal"
	Overweight  = "Overweight"
	Obese       = "Obese"
)

// Calculate returns weight / height² with height in metres, rounded to one decimal.
func Calculate(heightCm, weightKg float64) (float64, error) {
	if !(heightCm > 0 && heightCm <= 300) {
		return 0, fmt.Errorf("%w: height %.1fcm", ErrInvalidMeasurement, heightCm)
	}
	if !(weightKg > 0 && weightKg <= 500) {
		return 0, fmt.Errorf("%w: weight %.1fkg", ErrInvalidMeasurement, weightKg)
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*10) / 10, nil
}

func Category(value float64) string {
	switch {
	case value < 18.5:
		return Underweight
	case value < 25:
		return Normal
	case value < 30:
		return Overweight
	default:
		return Obese
	}
}
