// Package timertest provides a manually driven clock for tests of code
// built on package timer.
package timertest

import (
	"sync"
	"time"

	"backend-bodytune/internal/timer"
)

// Clock only moves when told to. Its tickers never fire on their own;
// drive timers built on it with Tick.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

var _ timer.Clock = (*Clock)(nil)

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) NewTicker(time.Duration) timer.Ticker {
	return idleTicker{c: make(chan time.Time)}
}

type idleTicker struct {
	c chan time.Time
}

func (t idleTicker) C() <-chan time.Time { return t.c }
func (t idleTicker) Stop()               {}
