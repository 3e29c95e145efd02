package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
)

// SettingsHandler reads and updates the engine configuration.
type SettingsHandler struct {
	app        *app.App
	configPath string
}

// NewSettingsHandler creates a new SettingsHandler. When configPath is
// set, accepted updates are also persisted to disk.
func NewSettingsHandler(a *app.App, configPath string) *SettingsHandler {
	return &SettingsHandler{app: a, configPath: configPath}
}

type settingsResponse struct {
	Config *config.Config `json:"config"`
	// CameraRestartRequired flags device or resolution changes, which
	// only take effect after a camera restart.
	CameraRestartRequired bool `json:"camera_restart_required,omitempty"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, settingsResponse{Config: h.app.CurrentConfig()})
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update handles PUT /api/settings. The request body is a partial
// config document; omitted fields keep their current values.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	current := h.app.CurrentConfig()

	next := h.app.CurrentConfig()
	if err := json.NewDecoder(r.Body).Decode(next); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.app.ApplyConfig(next); err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply config")
		return
	}

	if h.configPath != "" {
		if err := config.Save(h.configPath, next); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist config")
			return
		}
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		Config:                next,
		CameraRestartRequired: next.Camera != current.Camera,
	})
}
