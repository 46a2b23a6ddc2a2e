package run

import (
	"errors"
	"fmt"
	"math"

	"backend-bodytune/internal/shared/geo"
)

var ErrInvalidFix = errors.New("invalid fix")

// FixValidator decides whether next may be appended after prev.
// prev is nil for the first fix of a segment.
type FixValidator interface {
	Validate(prev *RoutePoint, next RoutePoint) error
}

type ValidatorFunc func(prev *RoutePoint, next RoutePoint) error

func (f ValidatorFunc) Validate(prev *RoutePoint, next RoutePoint) error {
	return f(prev, next)
}

// FiniteValidator rejects NaN, infinite and out of range coordinates.
type FiniteValidator struct{}

func (FiniteValidator) Validate(_ *RoutePoint, next RoutePoint) error {
	if !finite(next.Latitude) || !finite(next.Longitude) || !finite(next.Elevation) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidFix)
	}
	if math.Abs(next.Latitude) > 90 || math.Abs(next.Longitude) > 180 {
		return fmt.Errorf("%w: coordinates out of range (%.6f, %.6f)", ErrInvalidFix, next.Latitude, next.Longitude)
	}
	return nil
}

// SpeedValidator rejects fixes whose implied speed from the previous fix exceeds MaxSpeedMps.
// A zero MaxSpeedMps disables the check.
type SpeedValidator struct {
	MaxSpeedMps float64
}

func (v SpeedValidator) Validate(prev *RoutePoint, next RoutePoint) error {
	if prev == nil || v.MaxSpeedMps <= 0 {
		return nil
	}
	meters := geo.HaversineM(prev.Latitude, prev.Longitude, next.Latitude, next.Longitude)
	if meters == 0 {
		return nil
	}
	seconds := float64(next.Timestamp-prev.Timestamp) / 1000
	if seconds <= 0 {
		return fmt.Errorf("%w: moved %.1fm without time passing", ErrInvalidFix, meters)
	}
	if speed := meters / seconds; speed > v.MaxSpeedMps {
		return fmt.Errorf("%w: implied speed %.1fm/s exceeds %.1fm/s", ErrInvalidFix, speed, v.MaxSpeedMps)
	}
	return nil
}

// DefaultValidators is the chain used for live runs.
func DefaultValidators(maxSpeedMps float64) []FixValidator {
	return []FixValidator{FiniteValidator{}, SpeedValidator{MaxSpeedMps: maxSpeedMps}}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
