package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// feedMessage is one frame on the WebSocket feed: either a periodic
// status snapshot or a single gesture event.
type feedMessage struct {
	Type      string         `json:"type"` // "status" or "event"
	Status    *app.Status    `json:"status,omitempty"`
	Event     *gesture.Event `json:"event,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// FeedHandler pushes engine state to WebSocket clients: a status
// snapshot twice a second plus every gesture event as it fires.
type FeedHandler struct {
	app     *app.App
	events  chan gesture.Event
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewFeedHandler creates a FeedHandler and hooks it into the engine's
// event stream. Call once per app.
func NewFeedHandler(a *app.App) *FeedHandler {
	h := &FeedHandler{
		app:     a,
		events:  make(chan gesture.Event, 64),
		clients: make(map[*websocket.Conn]bool),
	}
	// Drop events rather than stall the pipeline when the feed backs up.
	a.OnEvent = func(ev gesture.Event) {
		select {
		case h.events <- ev:
		default:
		}
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reading detects disconnects; the only client message with any
	// meaning is a "ping" keep-alive probe.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType == websocket.TextMessage && string(data) == "ping" {
			h.mu.Lock()
			err = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			h.mu.Unlock()
			if err != nil {
				break
			}
		}
	}
}

// broadcast is the single writer for all feed connections.
func (h *FeedHandler) broadcast() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status := h.app.Status()
			h.send(feedMessage{Type: "status", Status: &status, Timestamp: time.Now().UnixMilli()})
		case ev := <-h.events:
			h.send(feedMessage{Type: "event", Event: &ev, Timestamp: time.Now().UnixMilli()})
		}
	}
}

// send writes one message to every client, dropping connections that
// fail.
func (h *FeedHandler) send(msg feedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}
