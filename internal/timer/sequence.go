package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrNoExercises     = errors.New("sequence has no exercises")
	ErrInvalidExercise = errors.New("exercise duration must be positive")
)

type Exercise struct {
	Name     string
	Duration time.Duration
}

type ExerciseState struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
}

type SequenceState struct {
	Phase                Phase           `json:"phase"`
	CurrentExerciseIndex int             `json:"current_exercise_index"`
	CurrentExercise      string          `json:"current_exercise"`
	Exercises            []ExerciseState `json:"exercises"`
	Current              State           `json:"current"`
	Completed            int             `json:"completed"`
	Skipped              int             `json:"skipped"`
	ElapsedMs            int64           `json:"elapsed_ms"`
	StartedAt            time.Time       `json:"started_at"`
}

type SequenceResult struct {
	StartedAt time.Time
	EndedAt   time.Time
	Elapsed   time.Duration
	Completed int
	Skipped   int
	Total     int
	// Natural is set when the last exercise ran out on its own.
	Natural bool
}

// Sequence runs a list of exercises back to back, one Timer per exercise.
// Lock order is Sequence.mu then Timer.mu; timer hooks never take Sequence.mu
// while the timer lock is held.
type Sequence struct {
	mu sync.Mutex

	exercises  []Exercise
	timerOpts  []Option
	clock      Clock
	onComplete func(SequenceResult)

	phase     Phase
	index     int
	current   *Timer
	completed int
	skipped   int
	elapsed   time.Duration
	startedAt time.Time
	endedAt   time.Time
}

// NewSequence validates the exercises. Only the clock and tick interval of
// opts reach the per-exercise timers; onComplete fires on every session end.
func NewSequence(exercises []Exercise, onComplete func(SequenceResult), opts ...Option) (*Sequence, error) {
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	for _, ex := range exercises {
		if ex.Duration <= 0 {
			return nil, ErrInvalidExercise
		}
	}
	s := newSettings(opts)
	return &Sequence{
		exercises:  append([]Exercise(nil), exercises...),
		timerOpts:  []Option{WithClock(s.clock), WithTickInterval(s.interval)},
		clock:      s.clock,
		onComplete: onComplete,
		phase:      Idle,
	}, nil
}

func (s *Sequence) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Idle {
		return s.invalid("start")
	}
	s.begin()
	return nil
}

func (s *Sequence) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Running {
		return s.invalid("pause")
	}
	if err := s.current.Pause(); err != nil {
		return err
	}
	s.phase = Paused
	return nil
}

func (s *Sequence) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Paused {
		return s.invalid("resume")
	}
	if err := s.current.Resume(); err != nil {
		return err
	}
	s.phase = Running
	return nil
}

// Next ends the current exercise early and moves on. It counts as skipped
// unless the exercise had already run out.
func (s *Sequence) Next() error {
	return s.advance("next")
}

func (s *Sequence) Skip() error {
	return s.advance("skip")
}

func (s *Sequence) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (s.phase != Running && s.phase != Paused) || s.index == 0 {
		return s.invalid("previous")
	}
	s.stopCurrent()
	s.index--
	s.startExercise()
	return nil
}

// Finish ends the whole session early.
func (s *Sequence) Finish() (SequenceResult, error) {
	s.mu.Lock()
	if s.phase != Running && s.phase != Paused {
		err := s.invalid("finish")
		s.mu.Unlock()
		return SequenceResult{}, err
	}
	if s.stopCurrent() {
		s.completed++
	}
	res := s.finish(false)
	s.mu.Unlock()

	s.complete(res)
	return res, nil
}

func (s *Sequence) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Finished {
		return s.invalid("restart")
	}
	s.begin()
	return nil
}

// Cancel discards the session without completing it.
func (s *Sequence) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Cancel()
		s.current = nil
	}
	s.phase = Idle
}

// Tick delivers one tick to the current exercise timer.
func (s *Sequence) Tick() {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		cur.Tick()
	}
}

func (s *Sequence) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Sequence) State() SequenceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SequenceState{
		Phase:                s.phase,
		CurrentExerciseIndex: s.index,
		CurrentExercise:      s.exercises[s.index].Name,
		Completed:            s.completed,
		Skipped:              s.skipped,
		StartedAt:            s.startedAt,
		Exercises:            make([]ExerciseState, 0, len(s.exercises)),
	}
	for _, ex := range s.exercises {
		st.Exercises = append(st.Exercises, ExerciseState{Name: ex.Name, DurationMs: ex.Duration.Milliseconds()})
	}
	elapsed := s.elapsed
	if s.current != nil {
		st.Current = s.current.State()
		if s.phase != Finished {
			elapsed += time.Duration(st.Current.ElapsedMs) * time.Millisecond
		}
	}
	st.ElapsedMs = elapsed.Milliseconds()
	return st
}

func (s *Sequence) advance(event string) error {
	s.mu.Lock()
	res, done, err := s.advanceLocked(event)
	s.mu.Unlock()
	if done {
		s.complete(res)
	}
	return err
}

// advanceLocked must be called with s.mu held. done reports that the last
// exercise was left and res is the session result.
func (s *Sequence) advanceLocked(event string) (res SequenceResult, done bool, err error) {
	if s.phase != Running && s.phase != Paused {
		return SequenceResult{}, false, s.invalid(event)
	}
	if s.stopCurrent() {
		s.completed++
	} else {
		s.skipped++
	}
	if s.index < len(s.exercises)-1 {
		s.index++
		s.startExercise()
		return SequenceResult{}, false, nil
	}
	return s.finish(false), true, nil
}

func (s *Sequence) exerciseFinished(t *Timer, r Result) {
	s.mu.Lock()
	if s.current != t || s.phase != Running {
		s.mu.Unlock()
		return
	}
	s.elapsed += r.Elapsed
	s.completed++
	if s.index < len(s.exercises)-1 {
		s.index++
		s.startExercise()
		s.mu.Unlock()
		return
	}
	res := s.finish(true)
	s.mu.Unlock()

	s.complete(res)
}

// begin must be called with s.mu held.
func (s *Sequence) begin() {
	s.index = 0
	s.completed = 0
	s.skipped = 0
	s.elapsed = 0
	s.endedAt = time.Time{}
	s.startedAt = s.clock.Now()
	s.startExercise()
}

// startExercise must be called with s.mu held.
func (s *Sequence) startExercise() {
	var t *Timer
	opts := append(append([]Option(nil), s.timerOpts...), WithOnFinish(func(r Result) {
		s.exerciseFinished(t, r)
	}))
	t = New(s.exercises[s.index].Duration, opts...)
	s.current = t
	s.phase = Running
	_ = t.Start()
}

// stopCurrent must be called with s.mu held. It reports whether the timer
// had already run out on its own, in which case its finish hook is still
// waiting on s.mu and will find a stale timer.
func (s *Sequence) stopCurrent() (ranOut bool) {
	if s.current == nil {
		return false
	}
	r, err := s.current.Stop()
	if err == nil {
		s.elapsed += r.Elapsed
		return false
	}
	st := s.current.State()
	if st.Phase != Finished {
		return false
	}
	s.elapsed += time.Duration(st.ElapsedMs) * time.Millisecond
	return true
}

// finish must be called with s.mu held.
func (s *Sequence) finish(natural bool) SequenceResult {
	s.phase = Finished
	s.endedAt = s.clock.Now()
	return SequenceResult{
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
		Elapsed:   s.elapsed,
		Completed: s.completed,
		Skipped:   s.skipped,
		Total:     len(s.exercises),
		Natural:   natural,
	}
}

func (s *Sequence) complete(res SequenceResult) {
	if s.onComplete != nil {
		s.onComplete(res)
	}
}

func (s *Sequence) invalid(event string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, s.phase)
}
