package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/app"
)

// ControlHandler exposes runtime controls: start, stop, pause, resume
// and camera restart.
type ControlHandler struct {
	app *app.App
}

// NewControlHandler creates a new ControlHandler for the given app.
func NewControlHandler(a *app.App) *ControlHandler {
	return &ControlHandler{app: a}
}

type controlResponse struct {
	Running bool `json:"running"`
	Paused  bool `json:"paused"`
}

// ServeHTTP implements the http.Handler interface. Commands are POSTed
// to /api/control/{command}.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := strings.TrimPrefix(r.URL.Path, "/api/control/")
	switch command {
	case "start":
		if err := h.app.Start(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Pipeline start failed: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, h.state())
	case "stop":
		h.app.Stop()
		writeJSON(w, http.StatusOK, h.state())
	case "pause":
		h.app.SetPaused(true)
		writeJSON(w, http.StatusOK, h.state())
	case "resume":
		h.app.SetPaused(false)
		writeJSON(w, http.StatusOK, h.state())
	case "toggle":
		h.app.TogglePause()
		writeJSON(w, http.StatusOK, h.state())
	case "restart-camera":
		if err := h.app.RestartCamera(); err != nil {
			writeError(w, http.StatusInternalServerError, "Camera restart failed: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"restarted": true})
	default:
		writeError(w, http.StatusNotFound, "Unknown control command")
	}
}

func (h *ControlHandler) state() controlResponse {
	return controlResponse{Running: h.app.Running(), Paused: h.app.Paused()}
}
