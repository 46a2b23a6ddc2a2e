package timer

import "sync"

// tickHandle owns one periodic tick. A timer holds at most one; replacing it
// always cancels the previous handle first.
type tickHandle struct {
	ticker Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickHandle) cancel() {
	h.once.Do(func() {
		close(h.done)
		h.ticker.Stop()
	})
}

// schedule must be called with t.mu held.
func (t *Timer) schedule() {
	t.cancelTick()
	h := &tickHandle{
		ticker: t.clock.NewTicker(t.interval),
		done:   make(chan struct{}),
	}
	t.handle = h
	go t.loop(h)
}

// cancelTick must be called with t.mu held.
func (t *Timer) cancelTick() {
	if t.handle != nil {
		t.handle.cancel()
		t.handle = nil
	}
}

func (t *Timer) loop(h *tickHandle) {
	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C():
			t.tick(h)
		}
	}
}
