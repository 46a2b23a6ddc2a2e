package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoExercises() []Exercise {
	return []Exercise{
		{Name: "Push Up", Duration: 2 * time.Second},
		{Name: "Squat", Duration: 2 * time.Second},
	}
}

func TestNewSequenceValidates(t *testing.T) {
	_, err := NewSequence(nil, nil)
	assert.ErrorIs(t, err, ErrNoExercises)

	_, err = NewSequence([]Exercise{{Name: "Plank"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidExercise)
}

func TestSequenceRunsToCompletion(t *testing.T) {
	var results []SequenceResult
	seq, err := NewSequence(twoExercises(), func(r SequenceResult) { results = append(results, r) },
		WithClock(newFakeClock(epoch)), WithTickInterval(time.Second))
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	seq.Tick()
	seq.Tick()
	st := seq.State()
	assert.Equal(t, 1, st.CurrentExerciseIndex)
	assert.Equal(t, "Squat", st.CurrentExercise)
	assert.Equal(t, 1, st.Completed)

	seq.Tick()
	seq.Tick()
	require.Len(t, results, 1)
	assert.True(t, results[0].Natural)
	assert.Equal(t, 2, results[0].Completed)
	assert.Equal(t, 0, results[0].Skipped)
	assert.Equal(t, 4*time.Second, results[0].Elapsed)
	assert.Equal(t, Finished, seq.State().Phase)

	seq.Tick()
	assert.Len(t, results, 1)
}

func TestSequenceNextCountsSkipped(t *testing.T) {
	clock := newFakeClock(epoch)
	var results []SequenceResult
	seq, err := NewSequence(twoExercises(), func(r SequenceResult) { results = append(results, r) }, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	clock.Advance(1500 * time.Millisecond)
	require.NoError(t, seq.Next())
	assert.Equal(t, 1, seq.State().CurrentExerciseIndex)
	assert.Equal(t, Running, seq.State().Phase)

	clock.Advance(time.Second)
	require.NoError(t, seq.Skip())
	require.Len(t, results, 1)
	assert.False(t, results[0].Natural)
	assert.Equal(t, 2, results[0].Skipped)
	assert.Equal(t, 0, results[0].Completed)
	assert.Equal(t, 2500*time.Millisecond, results[0].Elapsed)

	assert.ErrorIs(t, seq.Next(), ErrInvalidTransition)
}

func TestSequenceNextAfterExerciseRanOut(t *testing.T) {
	seq, err := NewSequence(twoExercises(), nil, WithClock(newFakeClock(epoch)), WithTickInterval(time.Second))
	require.NoError(t, err)
	require.NoError(t, seq.Start())
	cur := seq.current

	// The finish hook blocks on the sequence lock while Next holds it.
	seq.mu.Lock()
	ticked := make(chan struct{})
	go func() {
		cur.Tick()
		cur.Tick()
		close(ticked)
	}()
	require.Eventually(t, func() bool { return cur.Phase() == Finished }, time.Second, time.Millisecond)
	_, done, err := seq.advanceLocked("next")
	seq.mu.Unlock()
	require.NoError(t, err)
	assert.False(t, done)
	<-ticked

	st := seq.State()
	assert.Equal(t, 1, st.CurrentExerciseIndex)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 0, st.Skipped)
	assert.Equal(t, int64(2000), st.ElapsedMs)
	assert.Equal(t, Running, st.Phase)
}

func TestSequencePrevious(t *testing.T) {
	seq, err := NewSequence(twoExercises(), nil, WithClock(newFakeClock(epoch)))
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	assert.ErrorIs(t, seq.Previous(), ErrInvalidTransition)
	require.NoError(t, seq.Next())
	require.NoError(t, seq.Previous())
	st := seq.State()
	assert.Equal(t, 0, st.CurrentExerciseIndex)
	assert.Equal(t, int64(2000), st.Current.RemainingMs)
}

func TestSequencePauseResume(t *testing.T) {
	clock := newFakeClock(epoch)
	seq, err := NewSequence(twoExercises(), nil, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	clock.Advance(time.Second)
	require.NoError(t, seq.Pause())
	seq.Tick()
	clock.Advance(time.Hour)
	st := seq.State()
	assert.Equal(t, Paused, st.Phase)
	assert.Equal(t, int64(1000), st.ElapsedMs)
	assert.Equal(t, int64(2000), st.Current.RemainingMs)

	assert.ErrorIs(t, seq.Pause(), ErrInvalidTransition)
	require.NoError(t, seq.Resume())
	assert.Equal(t, Running, seq.State().Phase)
}

func TestSequenceFinishAndRestart(t *testing.T) {
	clock := newFakeClock(epoch)
	completions := 0
	seq, err := NewSequence(twoExercises(), func(SequenceResult) { completions++ }, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	clock.Advance(700 * time.Millisecond)
	res, err := seq.Finish()
	require.NoError(t, err)
	assert.Equal(t, 700*time.Millisecond, res.Elapsed)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, completions)

	_, err = seq.Finish()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, seq.Restart())
	st := seq.State()
	assert.Equal(t, Running, st.Phase)
	assert.Equal(t, 0, st.CurrentExerciseIndex)
	assert.Equal(t, int64(0), st.ElapsedMs)
}
