package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
)

// StreamHandler serves the camera preview as MJPEG, reading frames from
// the capture session the pipeline already runs. It never opens its own
// camera handle.
type StreamHandler struct {
	app *app.App
}

// NewStreamHandler creates a new StreamHandler backed by the app's
// capture session.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{app: a}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS preview
	defer ticker.Stop()

	var (
		lastSession *capture.Session
		lastSeq     uint64
	)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		// A camera restart swaps the session and resets sequence numbers.
		session := h.app.Session()
		if session != lastSession {
			lastSession = session
			lastSeq = 0
		}

		frame, seq, ok := session.LatestFrame()
		if !ok {
			continue
		}
		if seq == lastSeq {
			frame.Close()
			continue
		}
		lastSeq = seq

		buf, err := gocv.IMEncode(".jpg", frame)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
