// Package server provides the HTTP control surface: REST endpoints for
// settings, bindings and event history, a WebSocket feed for live
// status, and the MJPEG camera preview.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	ConfigPath string
	Store      *store.Store
	App        *app.App
}

// Server routes control-surface requests to the engine and the store.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	camerasHandler := api.NewCamerasHandler(s.config.App, s.config.ConfigPath)
	s.mux.Handle("/api/cameras", camerasHandler)
	s.mux.Handle("/api/cameras/", camerasHandler)

	// Binding and history endpoints need the store
	if s.config.Store != nil {
		onChange := func() {}
		if s.config.App != nil {
			onChange = func() {
				if err := s.config.App.ReloadBindings(); err != nil {
					log.Printf("server: reload bindings: %v", err)
				}
			}
		}
		bindingHandler := api.NewBindingHandler(s.config.Store, onChange)
		s.mux.Handle("/api/bindings", bindingHandler)
		s.mux.Handle("/api/bindings/", bindingHandler)

		eventsHandler := api.NewEventsHandler(s.config.Store)
		s.mux.Handle("/api/events", eventsHandler)
		s.mux.Handle("/api/events/", eventsHandler)
	}

	// Engine endpoints need the app
	if s.config.App != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.App, s.config.ConfigPath))
		s.mux.Handle("/api/control/", api.NewControlHandler(s.config.App))
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
		s.mux.Handle("/ws", NewFeedHandler(s.config.App))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleStatus handles GET requests to /api/status with a live engine
// snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.config.App.Status()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
