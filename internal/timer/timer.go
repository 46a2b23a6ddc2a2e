package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Phase string

const (
	Idle     Phase = "idle"
	Running  Phase = "running"
	Paused   Phase = "paused"
	Finished Phase = "finished"
)

var ErrInvalidTransition = errors.New("invalid timer transition")

// State is a point-in-time view of a timer.
type State struct {
	Phase           Phase     `json:"phase"`
	TotalDurationMs int64     `json:"total_duration_ms"`
	RemainingMs     int64     `json:"remaining_ms"`
	ElapsedMs       int64     `json:"elapsed_ms"`
	StartedAt       time.Time `json:"started_at"`
}

// Result describes how a timer reached Finished. Elapsed excludes paused time.
type Result struct {
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Natural   bool
}

type settings struct {
	clock     Clock
	interval  time.Duration
	onTick    func(State)
	onFinish  func(Result)
	onRestart func()
}

type Option func(*settings)

func WithClock(c Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithTickInterval sets both the tick period and the amount each tick takes off the countdown.
func WithTickInterval(d time.Duration) Option {
	return func(s *settings) { s.interval = d }
}

func WithOnTick(fn func(State)) Option {
	return func(s *settings) { s.onTick = fn }
}

// WithOnFinish is called once the countdown reaches zero. It is not called for Stop.
func WithOnFinish(fn func(Result)) Option {
	return func(s *settings) { s.onFinish = fn }
}

func WithOnRestart(fn func()) Option {
	return func(s *settings) { s.onRestart = fn }
}

func newSettings(opts []Option) settings {
	s := settings{clock: RealClock, interval: time.Second}
	for _, opt := range opts {
		opt(&s)
	}
	if s.clock == nil {
		s.clock = RealClock
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	return s
}

// Timer is a countdown state machine: Idle, Running, Paused, Finished.
// A zero total duration makes it open-ended; it then only ends through Stop.
// Hooks run without the timer lock held, on the goroutine that caused the transition.
type Timer struct {
	mu sync.Mutex
	settings

	total     time.Duration
	remaining time.Duration
	phase     Phase

	// startedAt moves forward by every pause so that now-startedAt is active time.
	startedAt time.Time
	firstAt   time.Time
	pausedAt  time.Time
	endedAt   time.Time
	elapsed   time.Duration

	handle *tickHandle
}

func New(total time.Duration, opts ...Option) *Timer {
	if total < 0 {
		total = 0
	}
	return &Timer{
		settings:  newSettings(opts),
		total:     total,
		remaining: total,
		phase:     Idle,
	}
}

func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Idle {
		return t.invalid("start")
	}
	now := t.clock.Now()
	t.startedAt = now
	t.firstAt = now
	t.phase = Running
	t.schedule()
	return nil
}

func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running {
		return t.invalid("pause")
	}
	t.cancelTick()
	t.pausedAt = t.clock.Now()
	t.phase = Paused
	return nil
}

func (t *Timer) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Paused {
		return t.invalid("resume")
	}
	t.startedAt = t.startedAt.Add(t.clock.Now().Sub(t.pausedAt))
	t.phase = Running
	t.schedule()
	return nil
}

// Stop ends a running or paused timer early. The tick is cancelled before Stop returns.
func (t *Timer) Stop() (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running && t.phase != Paused {
		return Result{}, t.invalid("stop")
	}
	t.cancelTick()

	now := t.clock.Now()
	until := now
	if t.phase == Paused {
		until = t.pausedAt
	}
	t.elapsed = until.Sub(t.startedAt)
	t.endedAt = now
	t.phase = Finished
	return Result{StartedAt: t.firstAt, EndedAt: now, Elapsed: t.elapsed}, nil
}

func (t *Timer) Restart() error {
	t.mu.Lock()
	if t.phase != Finished {
		err := t.invalid("restart")
		t.mu.Unlock()
		return err
	}
	now := t.clock.Now()
	t.remaining = t.total
	t.startedAt = now
	t.firstAt = now
	t.elapsed = 0
	t.endedAt = time.Time{}
	t.phase = Running
	t.schedule()
	hook := t.onRestart
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

// Cancel tears the timer down to Idle without producing a result.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelTick()
	t.phase = Idle
	t.remaining = t.total
	t.elapsed = 0
}

// Tick applies one tick as if delivered by the scheduler. It is a no-op unless Running.
func (t *Timer) Tick() {
	t.tick(nil)
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Timer) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Timer) tick(from *tickHandle) {
	t.mu.Lock()
	if (from != nil && from != t.handle) || t.phase != Running {
		t.mu.Unlock()
		return
	}

	var (
		finished bool
		result   Result
	)
	if t.total > 0 {
		t.remaining -= t.interval
		if t.remaining <= 0 {
			t.remaining = 0
			t.cancelTick()
			t.endedAt = t.clock.Now()
			t.elapsed = t.total
			t.phase = Finished
			finished = true
			result = Result{StartedAt: t.firstAt, EndedAt: t.endedAt, Elapsed: t.elapsed, Natural: true}
		}
	}
	state := t.stateLocked()
	onTick, onFinish := t.onTick, t.onFinish
	t.mu.Unlock()

	if onTick != nil {
		onTick(state)
	}
	if finished && onFinish != nil {
		onFinish(result)
	}
}

func (t *Timer) stateLocked() State {
	s := State{
		Phase:           t.phase,
		TotalDurationMs: t.total.Milliseconds(),
		RemainingMs:     t.remaining.Milliseconds(),
		StartedAt:       t.firstAt,
	}
	switch t.phase {
	case Running:
		s.ElapsedMs = t.clock.Now().Sub(t.startedAt).Milliseconds()
	case Paused:
		s.ElapsedMs = t.pausedAt.Sub(t.startedAt).Milliseconds()
	case Finished:
		s.ElapsedMs = t.elapsed.Milliseconds()
	}
	return s
}

func (t *Timer) invalid(event string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, t.phase)
}
