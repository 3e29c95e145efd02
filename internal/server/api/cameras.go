package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
)

// CamerasHandler serves capture device discovery and selection. Listing
// and probing work without an engine; selection needs one.
type CamerasHandler struct {
	app        *app.App
	configPath string
}

// NewCamerasHandler creates a new CamerasHandler. app may be nil, in
// which case device selection is unavailable.
func NewCamerasHandler(a *app.App, configPath string) *CamerasHandler {
	return &CamerasHandler{app: a, configPath: configPath}
}

type camerasResponse struct {
	Devices []int `json:"devices"`
}

type selectCameraResponse struct {
	Status string `json:"status"`
	Index  int    `json:"index"`
}

type testCameraResponse struct {
	Index      int  `json:"index"`
	Accessible bool `json:"accessible"`
}

// ServeHTTP routes /api/cameras, /api/cameras/select/{index} and
// /api/cameras/test/{index}.
func (h *CamerasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/cameras")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	command, indexStr, ok := strings.Cut(path, "/")
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "Invalid camera index")
		return
	}

	switch command {
	case "select":
		h.selectCamera(w, index)
	case "test":
		h.testCamera(w, index)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// list handles GET /api/cameras. Probing opens each candidate device
// briefly, so expect the active camera's index to be present but busy.
func (h *CamerasHandler) list(w http.ResponseWriter, r *http.Request) {
	devices := capture.ListDevices()
	if devices == nil {
		devices = []int{}
	}
	writeJSON(w, http.StatusOK, camerasResponse{Devices: devices})
}

// selectCamera handles POST /api/cameras/select/{index}: the device
// index goes into the camera config, which is persisted, and the
// capture session is cycled onto the new device.
func (h *CamerasHandler) selectCamera(w http.ResponseWriter, index int) {
	if h.app == nil {
		writeError(w, http.StatusServiceUnavailable, "Engine not available")
		return
	}

	next := h.app.CurrentConfig()
	next.Camera.DeviceIndex = index
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

	if err := h.app.RestartCamera(); err != nil {
		writeError(w, http.StatusInternalServerError, "Camera restart failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, selectCameraResponse{Status: "selected", Index: index})
}

// testCamera handles POST /api/cameras/test/{index} and reports whether
// the device opens and delivers a frame.
func (h *CamerasHandler) testCamera(w http.ResponseWriter, index int) {
	writeJSON(w, http.StatusOK, testCameraResponse{
		Index:      index,
		Accessible: capture.ProbeDevice(index),
	})
}
