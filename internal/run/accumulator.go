package run

import (
	"backend-bodytune/internal/shared/geo"
)

// Accumulator turns a stream of fixes into route and distance totals.
// It is not safe for concurrent use; the owning run serializes access.
type Accumulator struct {
	validators []FixValidator

	route          []RoutePoint
	distanceKm     float64
	elevationGainM float64
	maxSpeedMps    float64
	segmentBreak   bool
}

func NewAccumulator(validators ...FixValidator) *Accumulator {
	return &Accumulator{validators: validators}
}

// RecordFix appends fix to the route and adds the haversine distance from the
// previous fix of the same segment. Rejected fixes leave the accumulator untouched.
func (a *Accumulator) RecordFix(fix RoutePoint) error {
	var prev *RoutePoint
	if n := len(a.route); n > 0 && !a.segmentBreak {
		last := a.route[n-1]
		prev = &last
	}

	for _, v := range a.validators {
		if err := v.Validate(prev, fix); err != nil {
			return err
		}
	}

	a.route = append(a.route, fix)
	a.segmentBreak = false
	if prev == nil {
		return nil
	}

	meters := geo.HaversineM(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
	a.distanceKm += meters / 1000

	if seconds := float64(fix.Timestamp-prev.Timestamp) / 1000; seconds > 0 {
		if speed := meters / seconds; speed > a.maxSpeedMps {
			a.maxSpeedMps = speed
		}
	}
	if fix.Elevation > prev.Elevation {
		a.elevationGainM += fix.Elevation - prev.Elevation
	}
	return nil
}

// Break starts a new segment: the next accepted fix adds no distance from the last one.
func (a *Accumulator) Break() {
	if len(a.route) > 0 {
		a.segmentBreak = true
	}
}

func (a *Accumulator) Reset() {
	a.route = nil
	a.distanceKm = 0
	a.elevationGainM = 0
	a.maxSpeedMps = 0
	a.segmentBreak = false
}

func (a *Accumulator) DistanceKm() float64 {
	return a.distanceKm
}

func (a *Accumulator) Len() int {
	return len(a.route)
}

// Last returns the most recent accepted fix.
func (a *Accumulator) Last() (RoutePoint, bool) {
	if len(a.route) == 0 {
		return RoutePoint{}, false
	}
	return a.route[len(a.route)-1], true
}

// Route returns a copy of the accepted fixes in acceptance order.
func (a *Accumulator) Route() []RoutePoint {
	out := make([]RoutePoint, len(a.route))
	copy(out, a.route)
	return out
}

// Stats derives speed and elevation figures for a run that has lasted elapsedMs.
func (a *Accumulator) Stats(elapsedMs int64) RunningStats {
	stats := RunningStats{
		MaxSpeedMps:    a.maxSpeedMps,
		ElevationGainM: a.elevationGainM,
	}
	if elapsedMs > 0 {
		stats.AverageSpeedMps = a.distanceKm * 1000 / (float64(elapsedMs) / 1000)
	}
	return stats
}

// Snapshot is a copy of the accumulator totals at one instant.
type Snapshot struct {
	DistanceKm float64
	Route      []RoutePoint
	Stats      RunningStats
}

func (a *Accumulator) Snapshot(elapsedMs int64) Snapshot {
	return Snapshot{
		DistanceKm: a.distanceKm,
		Route:      a.Route(),
		Stats:      a.Stats(elapsedMs),
	}
}
