package workout

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func withUser(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func post(t *testing.T, app *fiber.App, path string, body []byte) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestWorkoutHandlers(t *testing.T) {
	ms := &memStore{}
	svc, _ := newTestService(t, ms)
	app := fiber.New()
	RegisterRoutes(app.Group("/workouts"), svc, withUser("user-1"))

	resp := post(t, app, "/workouts", []byte(`{"workout_type":"Core","exercises":[{"name":"Plank","duration_sec":30},{"name":"Crunch"}]}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status: %d", resp.StatusCode)
	}
	var state LiveState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.CurrentExercise != "Plank" || state.Phase != "running" {
		t.Fatalf("unexpected state %+v", state)
	}
	base := "/workouts/" + state.WorkoutID

	for _, step := range []struct {
		action string
		status int
	}{
		{"pause", http.StatusOK},
		{"pause", http.StatusConflict},
		{"resume", http.StatusOK},
		{"next", http.StatusOK},
		{"previous", http.StatusOK},
		{"skip", http.StatusOK},
		{"finish", http.StatusOK},
		{"finish", http.StatusConflict},
		{"restart", http.StatusOK},
	} {
		if resp := post(t, app, base+"/"+step.action, nil); resp.StatusCode != step.status {
			t.Fatalf("%s: expected %d, got %d", step.action, step.status, resp.StatusCode)
		}
	}

	req := httptest.NewRequest(http.MethodGet, base, nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("state status: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/workouts?user_id=user-1", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("history status: %v", err)
	}
	var history []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil || len(history) != 1 {
		t.Fatalf("expected one saved workout, got %v %v", history, err)
	}
	if history[0]["workoutType"] != "Core" {
		t.Fatalf("unexpected document %v", history[0])
	}

	req = httptest.NewRequest(http.MethodDelete, base, nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("discard status: %v", err)
	}
}

func TestWorkoutHandlersErrors(t *testing.T) {
	svc, _ := newTestService(t, &memStore{})
	app := fiber.New()
	RegisterRoutes(app.Group("/workouts"), svc, withUser("user-1"))

	if resp := post(t, app, "/workouts", []byte(`{"exercises":[]}`)); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", resp.StatusCode)
	}
	if resp := post(t, app, "/workouts", []byte(`{`)); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed body, got %d", resp.StatusCode)
	}
	if resp := post(t, app, "/workouts/missing/pause", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", resp.StatusCode)
	}

	start := []byte(`{"exercises":[{"name":"Plank"}]}`)
	if resp := post(t, app, "/workouts", start); resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status: %d", resp.StatusCode)
	}
	if resp := post(t, app, "/workouts", start); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict for second live workout, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/workouts?user_id=other", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden")
	}
}
