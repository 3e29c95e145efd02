package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
)

// newTestApp builds an unstarted pipeline on mock devices. Handler
// tests exercise pause and config state without running the tick loop.
func newTestApp(t *testing.T) *app.App {
	t.Helper()

	a, err := app.New(app.Config{
		Config:   config.Default(),
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Input:    action.NewMockInput(1920, 1080),
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return a
}

func postControl(t *testing.T, handler *ControlHandler, command string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/control/"+command, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestControlHandler_PauseResume(t *testing.T) {
	a := newTestApp(t)
	handler := NewControlHandler(a)

	rec := postControl(t, handler, "pause")
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d, want %d", rec.Code, http.StatusOK)
	}

	var state controlResponse
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !state.Paused {
		t.Error("paused = false after pause command")
	}
	if state.Running {
		t.Error("running = true for an unstarted pipeline")
	}
	if !a.Paused() {
		t.Error("app not paused after pause command")
	}

	rec = postControl(t, handler, "resume")
	if rec.Code != http.StatusOK {
		t.Fatalf("resume status = %d, want %d", rec.Code, http.StatusOK)
	}

	state = controlResponse{}
	json.NewDecoder(rec.Body).Decode(&state)
	if state.Paused {
		t.Error("paused = true after resume command")
	}
	if a.Paused() {
		t.Error("app still paused after resume command")
	}
}

func TestControlHandler_Toggle(t *testing.T) {
	a := newTestApp(t)
	handler := NewControlHandler(a)

	rec := postControl(t, handler, "toggle")
	var state controlResponse
	json.NewDecoder(rec.Body).Decode(&state)
	if !state.Paused {
		t.Error("first toggle: paused = false, want true")
	}

	rec = postControl(t, handler, "toggle")
	state = controlResponse{}
	json.NewDecoder(rec.Body).Decode(&state)
	if state.Paused {
		t.Error("second toggle: paused = true, want false")
	}
}

func TestControlHandler_UnknownCommand(t *testing.T) {
	a := newTestApp(t)
	handler := NewControlHandler(a)

	rec := postControl(t, handler, "selfdestruct")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestControlHandler_MethodNotAllowed(t *testing.T) {
	a := newTestApp(t)
	handler := NewControlHandler(a)

	req := httptest.NewRequest(http.MethodGet, "/api/control/pause", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
