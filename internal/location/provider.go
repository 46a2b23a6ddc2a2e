package location

import (
	"errors"

	"backend-bodytune/internal/run"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrProviderUnavailable = errors.New("no location provider enabled")
	ErrNotTracking         = errors.New("location tracking is not active")
)

const (
	SourceGPS     = "gps"
	SourceNetwork = "network"
)

// FixHandler receives each fix. Its error is returned to whoever pushed the fix.
type FixHandler func(run.RoutePoint) error

type ErrorHandler func(error)

// Provider delivers fixes to a single consumer between StartTracking and StopTracking.
type Provider interface {
	StartTracking(onFix FixHandler, onError ErrorHandler) error
	StopTracking()
	LastKnownFix() (run.RoutePoint, bool)
}

// Capabilities is what the device reported when the run started.
type Capabilities struct {
	PermissionGranted bool     `json:"permission_granted"`
	Providers         []string `json:"providers"`
}

// Source picks the provider a device would use, preferring GPS over network.
func (c Capabilities) Source() (string, error) {
	if !c.PermissionGranted {
		return "", ErrPermissionDenied
	}
	var network bool
	for _, p := range c.Providers {
		switch p {
		case SourceGPS:
			return SourceGPS, nil
		case SourceNetwork:
			network = true
		}
	}
	if network {
		return SourceNetwork, nil
	}
	return "", ErrProviderUnavailable
}
