package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"backend-bodytune/internal/location"
	"backend-bodytune/internal/run"
	"backend-bodytune/internal/store"
	"backend-bodytune/internal/stream"
	"backend-bodytune/internal/timer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("run not found")
	ErrRunActive       = errors.New("user already has an active run")
	ErrInvalidRequest  = errors.New("invalid run request")
)

// WeightLookup resolves the profile weight of a user. Zero means unknown.
type WeightLookup interface {
	WeightKg(ctx context.Context, userID string) (float64, error)
}

type Config struct {
	TickInterval    time.Duration
	MaxSpeedMps     float64
	DefaultWeightKg float64
	// SaveTimeout bounds how long Stop waits for the save result.
	SaveTimeout time.Duration
	Clock       timer.Clock
}

// Service owns every live run of this instance.
type Service struct {
	cfg        Config
	hub        *stream.Hub
	dispatcher *store.Dispatcher
	sessions   store.SessionStore
	weights    WeightLookup
	log        *zap.Logger

	mu   sync.RWMutex
	runs map[string]*liveRun
}

// liveRun locks: never hold mu while calling into timer or feed. The feed
// calls onFix with its own lock held and onFix takes mu.
type liveRun struct {
	id       string
	userID   string
	weightKg float64
	timer    *timer.Timer
	feed     *location.Feed

	// ctl serializes Stop, Restart and the natural finish. It is taken
	// before the timer lock and before mu.
	ctl sync.Mutex

	mu        sync.Mutex
	sessionID string
	acc       *run.Accumulator
	session   *run.RunningSession
	save      *store.SaveResult
}

func NewService(cfg Config, hub *stream.Hub, dispatcher *store.Dispatcher, sessions store.SessionStore, weights WeightLookup, logger *zap.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = timer.RealClock
	}
	if cfg.DefaultWeightKg <= 0 {
		cfg.DefaultWeightKg = run.DefaultWeightKg
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = store.NewDispatcher(sessions, cfg.SaveTimeout, logger)
	}
	return &Service{
		cfg:        cfg,
		hub:        hub,
		dispatcher: dispatcher,
		sessions:   sessions,
		weights:    weights,
		log:        logger,
		runs:       map[string]*liveRun{},
	}
}

func (s *Service) Start(ctx context.Context, req StartRequest) (LiveState, error) {
	if req.UserID == "" {
		return LiveState{}, fmt.Errorf("%w: user_id required", ErrInvalidRequest)
	}
	if req.TargetDurationSec < 0 {
		return LiveState{}, fmt.Errorf("%w: target_duration_sec must not be negative", ErrInvalidRequest)
	}
	id := uuid.NewString()
	lr := &liveRun{
		id:        id,
		userID:    req.UserID,
		weightKg:  s.resolveWeight(ctx, req.UserID, req.WeightKg),
		feed:      location.NewFeed(req.Location),
		sessionID: id,
		acc:       run.NewAccumulator(run.DefaultValidators(s.cfg.MaxSpeedMps)...),
	}
	lr.timer = timer.New(time.Duration(req.TargetDurationSec)*time.Second,
		timer.WithClock(s.cfg.Clock),
		timer.WithTickInterval(s.cfg.TickInterval),
		timer.WithOnFinish(func(r timer.Result) { s.finishNatural(lr, r) }),
		timer.WithOnRestart(func() {
			lr.mu.Lock()
			lr.acc.Reset()
			lr.sessionID = uuid.NewString()
			lr.session = nil
			lr.save = nil
			lr.mu.Unlock()
		}),
	)

	if err := s.reserve(lr); err != nil {
		return LiveState{}, err
	}
	if err := lr.feed.StartTracking(lr.onFix, s.onLocationError(lr)); err != nil {
		s.release(id)
		return LiveState{}, err
	}
	if err := lr.timer.Start(); err != nil {
		lr.feed.StopTracking()
		s.release(id)
		return LiveState{}, err
	}

	state := s.state(lr)
	s.log.Info("run started",
		zap.String("run_id", id),
		zap.String("user_id", req.UserID),
		zap.String("source", state.Source),
		zap.Float64("weight_kg", lr.weightKg))
	s.publish(id, stream.EventRunStarted, state)
	return state, nil
}

// PushFix feeds one client fix into the user's run. A fix the validators
// reject is reported with Accepted false rather than as an error.
func (s *Service) PushFix(runID, userID string, fix run.RoutePoint) (FixResult, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return FixResult{}, err
	}
	return s.push(lr, fix)
}

// IngestFix is PushFix for trusted device gateways, without an owner check.
// A rejected fix is reported as run.ErrInvalidFix.
func (s *Service) IngestFix(runID string, fix run.RoutePoint) error {
	lr, err := s.get(runID, "")
	if err != nil {
		return err
	}
	res, err := s.push(lr, fix)
	if err != nil {
		return err
	}
	if !res.Accepted {
		return fmt.Errorf("%w: %s", run.ErrInvalidFix, res.Reason)
	}
	return nil
}

func (s *Service) push(lr *liveRun, fix run.RoutePoint) (FixResult, error) {
	if fix.Timestamp == 0 {
		fix.Timestamp = s.cfg.Clock.Now().UnixMilli()
	}

	err := lr.feed.Push(fix)
	if errors.Is(err, run.ErrInvalidFix) {
		s.log.Debug("fix rejected", zap.String("run_id", lr.id), zap.Error(err))
		state := s.state(lr)
		s.publish(lr.id, stream.EventFixRejected, payload{"reason": err.Error()})
		return FixResult{Accepted: false, Reason: err.Error(), State: state}, nil
	}
	if err != nil {
		return FixResult{}, err
	}

	state := s.state(lr)
	s.publish(lr.id, stream.EventFix, payload{"fix": fix, "state": state})
	return FixResult{Accepted: true, State: state}, nil
}

// ReportLocationError forwards a device-side provider failure.
func (s *Service) ReportLocationError(runID, userID, message string) error {
	lr, err := s.get(runID, userID)
	if err != nil {
		return err
	}
	return lr.feed.Fail(errors.New(message))
}

func (s *Service) Pause(runID, userID string) (LiveState, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return LiveState{}, err
	}
	if err := lr.timer.Pause(); err != nil {
		return LiveState{}, err
	}
	lr.feed.StopTracking()

	state := s.state(lr)
	s.publish(runID, stream.EventRunPaused, state)
	return state, nil
}

// Resume restarts tracking. Movement while paused is not counted: the next fix opens a new segment.
func (s *Service) Resume(runID, userID string) (LiveState, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return LiveState{}, err
	}
	if err := lr.timer.Resume(); err != nil {
		return LiveState{}, err
	}
	lr.mu.Lock()
	lr.acc.Break()
	lr.mu.Unlock()
	if err := lr.feed.StartTracking(lr.onFix, s.onLocationError(lr)); err != nil {
		return LiveState{}, err
	}

	state := s.state(lr)
	s.publish(runID, stream.EventRunResumed, state)
	return state, nil
}

// Stop finishes the run, persists it and waits a bounded time for the save result.
// A failed save leaves the run finished.
func (s *Service) Stop(ctx context.Context, runID, userID string) (StopResult, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return StopResult{}, err
	}
	lr.ctl.Lock()
	res, err := lr.timer.Stop()
	if err != nil {
		lr.ctl.Unlock()
		return StopResult{}, err
	}
	lr.feed.StopTracking()
	session, _ := s.finalize(lr, res)
	lr.ctl.Unlock()

	s.publish(runID, stream.EventRunFinished, session)

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()
	saved := store.Await(waitCtx, s.dispatcher.SaveRunning(session))
	s.recordSave(lr, session, saved)

	return StopResult{Session: session, Saved: saved.OK, Error: saved.Error}, nil
}

func (s *Service) Restart(runID, userID string) (LiveState, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return LiveState{}, err
	}
	lr.ctl.Lock()
	if err := lr.timer.Restart(); err != nil {
		lr.ctl.Unlock()
		return LiveState{}, err
	}
	err = lr.feed.StartTracking(lr.onFix, s.onLocationError(lr))
	lr.ctl.Unlock()
	if err != nil {
		return LiveState{}, err
	}

	state := s.state(lr)
	s.publish(runID, stream.EventRunRestarted, state)
	return state, nil
}

// Discard drops a run without saving it.
func (s *Service) Discard(runID, userID string) error {
	lr, err := s.get(runID, userID)
	if err != nil {
		return err
	}
	lr.timer.Cancel()
	lr.feed.StopTracking()

	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
	s.log.Info("run discarded", zap.String("run_id", runID))
	return nil
}

func (s *Service) State(runID, userID string) (LiveState, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return LiveState{}, err
	}
	return s.state(lr), nil
}

func (s *Service) Route(runID, userID string) ([]run.RoutePoint, error) {
	lr, err := s.get(runID, userID)
	if err != nil {
		return nil, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.session != nil {
		return lr.session.Route, nil
	}
	return lr.acc.Route(), nil
}

func (s *Service) History(ctx context.Context, userID string) ([]run.RunningSession, error) {
	if s.sessions == nil {
		return nil, store.ErrNoStore
	}
	return s.sessions.ListRunning(ctx, userID)
}

// Snapshot serves the stream's initial state for a live run.
func (s *Service) Snapshot(runID string) (any, bool) {
	lr, err := s.get(runID, "")
	if err != nil {
		return nil, false
	}
	return s.state(lr), true
}

// Close cancels every live run's tick. Runs are not saved.
func (s *Service) Close() {
	s.mu.Lock()
	runs := make([]*liveRun, 0, len(s.runs))
	for _, lr := range s.runs {
		runs = append(runs, lr)
	}
	s.runs = map[string]*liveRun{}
	s.mu.Unlock()

	for _, lr := range runs {
		lr.timer.Cancel()
		lr.feed.StopTracking()
	}
}

// finishNatural runs from the timer hook, outside the timer lock. A Restart
// that got in first leaves the timer running a fresh session, which is left alone.
func (s *Service) finishNatural(lr *liveRun, res timer.Result) {
	lr.ctl.Lock()
	if lr.timer.Phase() != timer.Finished {
		lr.ctl.Unlock()
		return
	}
	lr.feed.StopTracking()
	session, ok := s.finalize(lr, res)
	lr.ctl.Unlock()
	if !ok {
		return
	}
	s.publish(lr.id, stream.EventRunFinished, session)

	saved := <-s.dispatcher.SaveRunning(session)
	s.recordSave(lr, session, saved)
}

// finalize builds the current session once; ok is false when it was
// already built.
func (s *Service) finalize(lr *liveRun, res timer.Result) (run.RunningSession, bool) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.session != nil {
		return *lr.session, false
	}
	session := run.NewSession(lr.sessionID, lr.userID, res.StartedAt, res.EndedAt, res.Elapsed, lr.acc, lr.weightKg)
	lr.session = &session
	return session, true
}

func (s *Service) recordSave(lr *liveRun, session run.RunningSession, saved store.SaveResult) {
	lr.mu.Lock()
	if lr.sessionID == session.SessionID {
		lr.save = &saved
	}
	lr.mu.Unlock()

	if saved.OK {
		s.log.Info("run saved",
			zap.String("run_id", lr.id),
			zap.Float64("distance_km", session.DistanceKm),
			zap.Int("calories", session.Calories))
		s.publish(lr.id, stream.EventSessionSaved, saved)
		return
	}
	s.publish(lr.id, stream.EventSaveFailed, saved)
}

func (lr *liveRun) onFix(fix run.RoutePoint) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.session != nil {
		return location.ErrNotTracking
	}
	return lr.acc.RecordFix(fix)
}

func (s *Service) onLocationError(lr *liveRun) location.ErrorHandler {
	return func(err error) {
		s.log.Info("location error reported", zap.String("run_id", lr.id), zap.Error(err))
		s.publish(lr.id, stream.EventLocationError, payload{"message": err.Error()})
	}
}

func (s *Service) state(lr *liveRun) LiveState {
	ts := lr.timer.State()
	source := lr.feed.Source()

	lr.mu.Lock()
	defer lr.mu.Unlock()

	st := LiveState{
		RunID:       lr.id,
		SessionID:   lr.sessionID,
		UserID:      lr.userID,
		Phase:       ts.Phase,
		Source:      source,
		ElapsedMs:   ts.ElapsedMs,
		TargetMs:    ts.TotalDurationMs,
		RemainingMs: ts.RemainingMs,
		Save:        lr.save,
	}
	if !ts.StartedAt.IsZero() {
		st.StartedAt = ts.StartedAt.UnixMilli()
	}
	if lr.session != nil {
		st.ElapsedMs = lr.session.Duration
		st.DistanceKm = lr.session.DistanceKm
		st.Pace = lr.session.AveragePace
		st.Calories = lr.session.Calories
		st.Points = len(lr.session.Route)
		st.Stats = lr.session.Stats
	} else {
		st.DistanceKm = lr.acc.DistanceKm()
		st.Pace = run.Pace(st.ElapsedMs, st.DistanceKm)
		st.Calories = run.Calories(st.DistanceKm, lr.weightKg)
		st.Points = lr.acc.Len()
		st.Stats = lr.acc.Stats(st.ElapsedMs)
	}
	st.Elapsed = run.FormatDuration(st.ElapsedMs)
	return st
}

// resolveWeight prefers the request, then the profile, then the configured default.
func (s *Service) resolveWeight(ctx context.Context, userID string, requested float64) float64 {
	if requested > 0 {
		return requested
	}
	if s.weights != nil {
		w, err := s.weights.WeightKg(ctx, userID)
		if err != nil {
			s.log.Debug("profile weight unavailable", zap.String("user_id", userID), zap.Error(err))
		} else if w > 0 {
			return w
		}
	}
	return s.cfg.DefaultWeightKg
}

// reserve registers lr as the user's run, evicting their finished runs. A run
// still being started counts as active.
func (s *Service) reserve(lr *liveRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.runs {
		if other.userID != lr.userID {
			continue
		}
		if other.timer.Phase() != timer.Finished {
			return fmt.Errorf("%w: %s", ErrRunActive, id)
		}
		delete(s.runs, id)
	}
	s.runs[lr.id] = lr
	return nil
}

func (s *Service) release(runID string) {
	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()
}

// get looks a run up. An empty userID skips the owner check.
func (s *Service) get(runID, userID string) (*liveRun, error) {
	s.mu.RLock()
	lr, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok || (userID != "" && lr.userID != userID) {
		return nil, ErrSessionNotFound
	}
	return lr, nil
}

func (s *Service) publish(runID, eventType string, data any) {
	if s.hub != nil {
		s.hub.Publish(runID, eventType, data)
	}
}

type payload map[string]any
