package store

import (
	"context"
	"errors"
	"testing"

	"backend-bodytune/internal/run"

	"github.com/pashagolub/pgxmock/v3"
)

func sampleRun() run.RunningSession {
	return run.RunningSession{
		SessionID:   "run-1",
		UserID:      "user-1",
		StartTime:   1_700_000_000_000,
		EndTime:     1_700_000_600_000,
		Duration:    600_000,
		DistanceKm:  2,
		AveragePace: `5'00"`,
		Calories:    105,
		Route:       []run.RoutePoint{{Latitude: 1, Longitude: 2, Timestamp: 1_700_000_000_000}},
		Stats:       run.RunningStats{MaxSpeedMps: 4, AverageSpeedMps: 3.3},
	}
}

func TestPostgresSaveAndListRunning(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	st := NewPostgresStore(mock)
	rs := sampleRun()

	mock.ExpectExec(`INSERT INTO running_sessions`).
		WithArgs("run-1", "user-1", rs.StartTime, rs.EndTime, rs.Duration, rs.DistanceKm, rs.AveragePace, rs.Calories,
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := st.SaveRunning(context.Background(), rs); err != nil {
		t.Fatalf("save running: %v", err)
	}

	mock.ExpectQuery(`SELECT id, user_id, start_time, end_time, duration_ms, distance_km, average_pace, calories, route, stats`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "start_time", "end_time", "duration_ms", "distance_km", "average_pace", "calories", "route", "stats"}).
			AddRow("run-1", "user-1", rs.StartTime, rs.EndTime, rs.Duration, rs.DistanceKm, rs.AveragePace, rs.Calories,
				[]byte(`[{"latitude":1,"longitude":2,"elevation":0,"timestamp":1700000000000}]`),
				[]byte(`{"maxSpeed":4,"averageSpeed":3.3,"elevationGain":0}`)))

	sessions, err := st.ListRunning(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list running: %v", err)
	}
	if len(sessions) != 1 || len(sessions[0].Route) != 1 || sessions[0].Stats.MaxSpeedMps != 4 {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSaveRunningError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO running_sessions`).WillReturnError(errors.New("connection refused"))

	if err := NewPostgresStore(mock).SaveRunning(context.Background(), sampleRun()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPostgresSaveAndListWorkouts(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	st := NewPostgresStore(mock)
	ws := WorkoutSession{
		SessionID: "w-1", UserID: "user-1", WorkoutType: "Upper Body", ExerciseName: "Push Up",
		Duration: 180_000, CaloriesBurned: 25, StartTime: 10, EndTime: 20, Notes: "Completed 1/1 exercises", CreatedAt: 20,
	}

	mock.ExpectExec(`INSERT INTO workout_sessions`).
		WithArgs("w-1", "user-1", "Upper Body", "Push Up", int64(180_000), 25, int64(10), int64(20), "Completed 1/1 exercises", int64(20)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := st.SaveWorkout(context.Background(), ws); err != nil {
		t.Fatalf("save workout: %v", err)
	}

	mock.ExpectQuery(`SELECT id, user_id, workout_type, exercise_name`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "workout_type", "exercise_name", "duration_ms", "calories_burned", "start_time", "end_time", "notes", "created_at"}).
			AddRow("w-1", "user-1", "Upper Body", "Push Up", int64(180_000), 25, int64(10), int64(20), "Completed 1/1 exercises", int64(20)))

	workouts, err := st.ListWorkouts(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list workouts: %v", err)
	}
	if len(workouts) != 1 || workouts[0] != ws {
		t.Fatalf("unexpected workouts: %+v", workouts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
