package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// EventsHandler serves the dispatched action history.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates a new EventsHandler with the given store.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/events or /api/events/stats
	path := strings.TrimPrefix(r.URL.Path, "/api/events")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.prune(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stats(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type eventResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Channel   string `json:"channel,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	CreatedAt string `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type statsResponse struct {
	Counts map[string]int `json:"counts"`
}

type pruneResponse struct {
	Pruned int64 `json:"pruned"`
}

// list handles GET /api/events?limit=N and returns the newest events.
func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	events, err := h.store.Events().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, ev := range events {
		response.Events = append(response.Events, eventResponse{
			ID:        ev.ID,
			Type:      ev.Type,
			Channel:   ev.Channel,
			X:         ev.X,
			Y:         ev.Y,
			CreatedAt: ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// stats handles GET /api/events/stats and returns per-type counts.
func (h *EventsHandler) stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.Events().CountByType()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Counts: counts})
}

// prune handles DELETE /api/events?hours=N and removes events older
// than N hours. With no hours parameter the whole history is cleared.
func (h *EventsHandler) prune(w http.ResponseWriter, r *http.Request) {
	hours := 0
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid hours")
			return
		}
		hours = n
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	pruned, err := h.store.Events().Prune(cutoff)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to prune events")
		return
	}

	writeJSON(w, http.StatusOK, pruneResponse{Pruned: pruned})
}
