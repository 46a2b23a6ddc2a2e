package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"backend-bodytune/internal/run"

	"go.uber.org/zap"
)

var ErrNoStore = errors.New("no session store configured")

// SaveResult is the outcome of one asynchronous save.
type SaveResult struct {
	OK    bool   `json:"saved"`
	Error string `json:"error,omitempty"`
}

// Dispatcher runs saves off the caller's goroutine. Each save gets its own
// timeout and is attempted once; a failed save is reported, not retried.
type Dispatcher struct {
	store   SessionStore
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(store SessionStore, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, timeout: timeout, log: logger}
}

// SaveRunning returns a channel that receives exactly one result.
func (d *Dispatcher) SaveRunning(session run.RunningSession) <-chan SaveResult {
	return d.dispatch("running", session.SessionID, func(ctx context.Context) error {
		return d.store.SaveRunning(ctx, session)
	})
}

func (d *Dispatcher) SaveWorkout(session WorkoutSession) <-chan SaveResult {
	return d.dispatch("workout", session.SessionID, func(ctx context.Context) error {
		return d.store.SaveWorkout(ctx, session)
	})
}

// Wait blocks until every dispatched save has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(kind, sessionID string, save func(context.Context) error) <-chan SaveResult {
	out := make(chan SaveResult, 1)
	if d.store == nil {
		out <- SaveResult{Error: ErrNoStore.Error()}
		return out
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := save(ctx); err != nil {
			d.log.Warn("session save failed",
				zap.String("kind", kind),
				zap.String("session_id", sessionID),
				zap.Error(err))
			out <- SaveResult{Error: err.Error()}
			return
		}
		d.log.Debug("session saved", zap.String("kind", kind), zap.String("session_id", sessionID))
		out <- SaveResult{OK: true}
	}()
	return out
}

// Await waits for a result, giving up when ctx ends first.
func Await(ctx context.Context, ch <-chan SaveResult) SaveResult {
	select {
	case res := <-ch:
		return res
	case <-ctx.Done():
		return SaveResult{Error: ctx.Err().Error()}
	}
}
