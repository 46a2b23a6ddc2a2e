package run

// RoutePoint is one accepted location fix. Timestamp is epoch milliseconds.
type RoutePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Timestamp int64   `json:"timestamp"`
}

type RunningStats struct {
	MaxSpeedMps     float64 `json:"maxSpeed"`
	AverageSpeedMps float64 `json:"averageSpeed"`
	ElevationGainM  float64 `json:"elevationGain"`
}

// RunningSession is the finished-run document handed to the session store.
// Field names match the documents already present in the remote store.
type RunningSession struct {
	SessionID   string       `json:"sessionId"`
	UserID      string       `json:"userId"`
	StartTime   int64        `json:"startTime"`
	EndTime     int64        `json:"endTime"`
	Duration    int64        `json:"duration"`
	DistanceKm  float64      `json:"distance"`
	AveragePace string       `json:"averagePace"`
	Calories    int          `json:"calories"`
	Route       []RoutePoint `json:"route"`
	Stats       RunningStats `json:"stats"`
}
