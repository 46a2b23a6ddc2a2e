package tracking

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"backend-bodytune/internal/location"
	"backend-bodytune/internal/run"
	"backend-bodytune/internal/store"
	"backend-bodytune/internal/timer"
	"backend-bodytune/internal/timer/timertest"

	"github.com/pashagolub/pgxmock/v3"
)

var epoch = time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)

type memStore struct {
	mu      sync.Mutex
	err     error
	running []run.RunningSession
}

func (m *memStore) SaveRunning(_ context.Context, s run.RunningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.running = append(m.running, s)
	return nil
}

func (m *memStore) SaveWorkout(context.Context, store.WorkoutSession) error { return nil }

func (m *memStore) ListRunning(context.Context, string) ([]run.RunningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]run.RunningSession(nil), m.running...), nil
}

func (m *memStore) ListWorkouts(context.Context, string) ([]store.WorkoutSession, error) {
	return nil, nil
}

type weights map[string]float64

func (w weights) WeightKg(_ context.Context, userID string) (float64, error) {
	if v, ok := w[userID]; ok {
		return v, nil
	}
	return 0, errors.New("no profile")
}

func newTestService(t *testing.T, st store.SessionStore, lookup WeightLookup) (*Service, *timertest.Clock) {
	t.Helper()
	clock := timertest.NewClock(epoch)
	svc := NewService(Config{
		TickInterval:    time.Second,
		MaxSpeedMps:     12.5,
		DefaultWeightKg: 70,
		SaveTimeout:     time.Second,
		Clock:           clock,
	}, nil, store.NewDispatcher(st, time.Second, nil), st, lookup, nil)
	t.Cleanup(svc.Close)
	return svc, clock
}

func gpsOn() location.Capabilities {
	return location.Capabilities{PermissionGranted: true, Providers: []string{"gps"}}
}

func at(lat, lng float64, ts time.Time) run.RoutePoint {
	return run.RoutePoint{Latitude: lat, Longitude: lng, Timestamp: ts.UnixMilli()}
}

func TestRunLifecycleExcludesPause(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	svc, clock := newTestService(t, store.NewPostgresStore(mock), nil)

	state, err := svc.Start(context.Background(), StartRequest{UserID: "user-1", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if state.Phase != timer.Running || state.Source != "gps" || state.Pace != run.PaceSentinel {
		t.Fatalf("unexpected start state: %+v", state)
	}
	id := state.RunID

	if res, err := svc.PushFix(id, "user-1", at(0, 0, clock.Now())); err != nil || !res.Accepted {
		t.Fatalf("first fix: %+v %v", res, err)
	}
	clock.Advance(10 * time.Second)
	if res, err := svc.PushFix(id, "user-1", at(0, 0.001, clock.Now())); err != nil || !res.Accepted {
		t.Fatalf("second fix: %+v %v", res, err)
	}

	if _, err := svc.Pause(id, "user-1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := svc.PushFix(id, "user-1", at(0, 0.5, clock.Now())); !errors.Is(err, location.ErrNotTracking) {
		t.Fatalf("expected not tracking while paused, got %v", err)
	}
	if _, err := svc.Pause(id, "user-1"); !errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if _, err := svc.Resume(id, "user-1"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	// far from the last fix; a new segment adds no distance
	if res, err := svc.PushFix(id, "user-1", at(0, 0.01, clock.Now())); err != nil || !res.Accepted {
		t.Fatalf("fix after resume: %+v %v", res, err)
	}
	clock.Advance(10 * time.Second)

	mock.ExpectExec(`INSERT INTO running_sessions`).
		WithArgs(id, "user-1", epoch.UnixMilli(), clock.Now().UnixMilli(), int64(20_000),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 5, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := svc.Stop(context.Background(), id, "user-1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !res.Saved || res.Error != "" {
		t.Fatalf("expected saved, got %+v", res)
	}
	if res.Session.Duration != 20_000 {
		t.Fatalf("expected 20s active time, got %d", res.Session.Duration)
	}
	if math.Abs(res.Session.DistanceKm-0.1112) > 0.001 {
		t.Fatalf("unexpected distance %v", res.Session.DistanceKm)
	}
	if len(res.Session.Route) != 3 {
		t.Fatalf("expected 3 route points, got %d", len(res.Session.Route))
	}

	state, err = svc.State(id, "user-1")
	if err != nil || state.Phase != timer.Finished || state.Save == nil || !state.Save.OK {
		t.Fatalf("unexpected final state %+v err %v", state, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStartLocationErrors(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, nil)

	_, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: location.Capabilities{Providers: []string{"gps"}}})
	if !errors.Is(err, location.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	_, err = svc.Start(context.Background(), StartRequest{UserID: "u", Location: location.Capabilities{PermissionGranted: true}})
	if !errors.Is(err, location.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
	_, err = svc.Start(context.Background(), StartRequest{Location: gpsOn()})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestRejectedFixIsReportedNotCounted(t *testing.T) {
	svc, clock := newTestService(t, &memStore{}, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := svc.PushFix(state.RunID, "u", run.RoutePoint{Latitude: math.NaN(), Timestamp: clock.Now().UnixMilli()})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if res.Accepted || res.Reason == "" || res.State.Points != 0 {
		t.Fatalf("expected rejection, got %+v", res)
	}

	if _, err := svc.PushFix(state.RunID, "u", at(0, 0, clock.Now())); err != nil {
		t.Fatalf("push: %v", err)
	}
	clock.Advance(time.Second)
	// 1.1 km in one second
	res, err = svc.PushFix(state.RunID, "u", at(0, 0.01, clock.Now()))
	if err != nil || res.Accepted {
		t.Fatalf("expected implausible fix to be rejected, got %+v %v", res, err)
	}
	if res.State.DistanceKm != 0 {
		t.Fatalf("expected no distance, got %v", res.State.DistanceKm)
	}
}

func TestNaturalFinishPersists(t *testing.T) {
	ms := &memStore{}
	svc, _ := newTestService(t, ms, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "u", TargetDurationSec: 3, Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	lr, _ := svc.get(state.RunID, "u")
	for i := 0; i < 3; i++ {
		lr.timer.Tick()
	}

	state, _ = svc.State(state.RunID, "u")
	if state.Phase != timer.Finished || state.ElapsedMs != 3000 {
		t.Fatalf("unexpected state after countdown %+v", state)
	}
	if state.Save == nil || !state.Save.OK {
		t.Fatalf("expected saved result, got %+v", state.Save)
	}
	if len(ms.running) != 1 || ms.running[0].Duration != 3000 {
		t.Fatalf("expected one persisted session, got %+v", ms.running)
	}
	if _, err := svc.PushFix(state.RunID, "u", run.RoutePoint{}); !errors.Is(err, location.ErrNotTracking) {
		t.Fatalf("expected no fixes after finish, got %v", err)
	}
	if _, err := svc.Stop(context.Background(), state.RunID, "u"); !errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("expected stop after finish to fail, got %v", err)
	}
}

func TestLateFinishLeavesRestartedRunAlone(t *testing.T) {
	ms := &memStore{}
	svc, clock := newTestService(t, ms, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "u", TargetDurationSec: 3, Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := state.RunID
	lr, _ := svc.get(id, "u")
	for i := 0; i < 3; i++ {
		lr.timer.Tick()
	}
	if len(ms.running) != 1 {
		t.Fatalf("expected one persisted session, got %d", len(ms.running))
	}
	first := ms.running[0]
	late := timer.Result{StartedAt: epoch, EndedAt: epoch.Add(3 * time.Second), Elapsed: 3 * time.Second, Natural: true}

	svc.finishNatural(lr, late)
	if len(ms.running) != 1 {
		t.Fatalf("expected a repeated finish to be ignored, got %d saves", len(ms.running))
	}

	if _, err := svc.Restart(id, "u"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	svc.finishNatural(lr, late)

	state, _ = svc.State(id, "u")
	if state.Phase != timer.Running || state.Save != nil || state.SessionID == first.SessionID {
		t.Fatalf("expected restarted run to keep running, got %+v", state)
	}
	if res, err := svc.PushFix(id, "u", at(0, 0, clock.Now())); err != nil || !res.Accepted {
		t.Fatalf("expected fixes after restart: %+v %v", res, err)
	}
	if len(ms.running) != 1 {
		t.Fatalf("expected no save for the restarted run, got %d", len(ms.running))
	}
}

func TestStopSaveFailureKeepsRunFinished(t *testing.T) {
	svc, _ := newTestService(t, &memStore{err: errors.New("permission denied")}, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	res, err := svc.Stop(context.Background(), state.RunID, "u")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.Saved || res.Error != "permission denied" {
		t.Fatalf("expected failed save, got %+v", res)
	}
	state, _ = svc.State(state.RunID, "u")
	if state.Phase != timer.Finished {
		t.Fatalf("expected finished, got %s", state.Phase)
	}
}

func TestRestartClearsRoute(t *testing.T) {
	svc, clock := newTestService(t, &memStore{}, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id := state.RunID
	_, _ = svc.PushFix(id, "u", at(0, 0, clock.Now()))
	if _, err := svc.Restart(id, "u"); !errors.Is(err, timer.ErrInvalidTransition) {
		t.Fatalf("expected restart while running to fail, got %v", err)
	}
	first, err := svc.Stop(context.Background(), id, "u")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	state, err = svc.Restart(id, "u")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if state.Phase != timer.Running || state.Points != 0 || state.Save != nil {
		t.Fatalf("unexpected restarted state %+v", state)
	}
	if state.SessionID == first.Session.SessionID {
		t.Fatalf("expected a fresh session id")
	}
	route, _ := svc.Route(id, "u")
	if len(route) != 0 {
		t.Fatalf("expected empty route")
	}
	if res, err := svc.PushFix(id, "u", at(0, 0, clock.Now())); err != nil || !res.Accepted {
		t.Fatalf("expected tracking after restart: %+v %v", res, err)
	}
}

func TestWeightResolution(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, weights{"heavy": 100})

	cases := []struct {
		user      string
		requested float64
		want      float64
	}{
		{"heavy", 0, 100},
		{"heavy", 55, 55},
		{"unknown", 0, 70},
	}
	for _, tc := range cases {
		if got := svc.resolveWeight(context.Background(), tc.user, tc.requested); got != tc.want {
			t.Fatalf("%s/%v: expected %v, got %v", tc.user, tc.requested, tc.want, got)
		}
	}
}

func TestOneActiveRunPerUser(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, nil)
	first, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()}); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected active run error, got %v", err)
	}
	if _, err := svc.Stop(context.Background(), first.RunID, "u"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := svc.Start(context.Background(), StartRequest{UserID: "u", Location: gpsOn()}); err != nil {
		t.Fatalf("start after stop: %v", err)
	}
	if _, err := svc.State(first.RunID, "u"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected finished run to be evicted, got %v", err)
	}
}

func TestOwnerAndDiscard(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, nil)
	state, err := svc.Start(context.Background(), StartRequest{UserID: "owner", Location: gpsOn()})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.State(state.RunID, "intruder"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, ok := svc.Snapshot(state.RunID); !ok {
		t.Fatalf("expected snapshot")
	}
	if err := svc.IngestFix(state.RunID, run.RoutePoint{Latitude: 1, Longitude: 1}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := svc.ReportLocationError(state.RunID, "owner", "gps lost"); err != nil {
		t.Fatalf("location error: %v", err)
	}

	if err := svc.Discard(state.RunID, "owner"); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := svc.State(state.RunID, "owner"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected discarded run to be gone")
	}
}

func TestHistory(t *testing.T) {
	ms := &memStore{running: []run.RunningSession{{SessionID: "old", UserID: "u"}}}
	svc, _ := newTestService(t, ms, nil)
	sessions, err := svc.History(context.Background(), "u")
	if err != nil || len(sessions) != 1 {
		t.Fatalf("unexpected history %+v err %v", sessions, err)
	}
}
