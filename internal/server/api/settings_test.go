package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/config"
)

func TestSettingsHandler_Get(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response settingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Config == nil {
		t.Fatal("expected config in response")
	}

	defaults := config.Default()
	if response.Config.Gestures.PinchThreshold != defaults.Gestures.PinchThreshold {
		t.Errorf("pinch threshold = %v, want default %v",
			response.Config.Gestures.PinchThreshold, defaults.Gestures.PinchThreshold)
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	body := []byte(`{"cursor": {"sensitivity": 2.5}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response settingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Config.Cursor.Sensitivity != 2.5 {
		t.Errorf("response sensitivity = %v, want 2.5", response.Config.Cursor.Sensitivity)
	}

	if response.CameraRestartRequired {
		t.Error("camera restart flagged for a cursor-only change")
	}

	// Untouched fields keep their values
	if response.Config.Gestures.PinchThreshold != config.Default().Gestures.PinchThreshold {
		t.Errorf("pinch threshold changed by partial update: %v", response.Config.Gestures.PinchThreshold)
	}

	// The pipeline is stopped, so the new config applies immediately
	if got := a.CurrentConfig().Cursor.Sensitivity; got != 2.5 {
		t.Errorf("app sensitivity = %v, want 2.5", got)
	}
}

func TestSettingsHandler_Update_Invalid(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	// Pinch threshold above the accepted range
	body := []byte(`{"gestures": {"pinch_threshold": 0.5}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	if got := a.CurrentConfig().Gestures.PinchThreshold; got == 0.5 {
		t.Error("rejected config was applied")
	}
}

func TestSettingsHandler_Update_InvalidJSON(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSettingsHandler_Update_CameraChange(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	body := []byte(`{"camera": {"device_index": 2}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response settingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !response.CameraRestartRequired {
		t.Error("expected camera_restart_required for a device change")
	}
}

func TestSettingsHandler_Update_Persists(t *testing.T) {
	a := newTestApp(t)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	handler := NewSettingsHandler(a, cfgPath)

	body := []byte(`{"cursor": {"sensitivity": 3.0}}`)
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	saved, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if saved.Cursor.Sensitivity != 3.0 {
		t.Errorf("saved sensitivity = %v, want 3.0", saved.Cursor.Sensitivity)
	}
}

func TestSettingsHandler_MethodNotAllowed(t *testing.T) {
	a := newTestApp(t)
	handler := NewSettingsHandler(a, "")

	req := httptest.NewRequest(http.MethodPost, "/api/settings", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
