package location

import (
	"sync"

	"backend-bodytune/internal/run"
)

// Feed is a Provider fed from outside: HTTP requests and the NATS bridge push
// fixes into it. Deliveries are serialized in arrival order and stop as soon as
// StopTracking returns.
type Feed struct {
	mu       sync.Mutex
	caps     Capabilities
	source   string
	tracking bool
	onFix    FixHandler
	onError  ErrorHandler
	last     run.RoutePoint
	hasLast  bool
}

var _ Provider = (*Feed)(nil)

func NewFeed(caps Capabilities) *Feed {
	return &Feed{caps: caps}
}

func (f *Feed) StartTracking(onFix FixHandler, onError ErrorHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	source, err := f.caps.Source()
	if err != nil {
		return err
	}
	f.source = source
	f.onFix = onFix
	f.onError = onError
	f.tracking = true
	return nil
}

func (f *Feed) StopTracking() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracking = false
	f.onFix = nil
	f.onError = nil
}

func (f *Feed) LastKnownFix() (run.RoutePoint, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.hasLast
}

func (f *Feed) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *Feed) Tracking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracking
}

// Push delivers fix to the consumer. The handler runs with the feed lock held,
// so it must not call back into the feed.
func (f *Feed) Push(fix run.RoutePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tracking {
		return ErrNotTracking
	}
	f.last = fix
	f.hasLast = true
	if f.onFix == nil {
		return nil
	}
	return f.onFix(fix)
}

// Fail reports a device-side location error to the consumer.
func (f *Feed) Fail(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tracking {
		return ErrNotTracking
	}
	if f.onError != nil {
		f.onError(err)
	}
	return nil
}
