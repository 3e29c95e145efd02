// Package testdata provides recorded landmark sessions for pipeline
// tests. Each session is a JSON script of per-frame hand observations,
// compact enough to author by hand and expanded into full landmark
// sets on load.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

//go:embed sessions/*.json
var sessionsFS embed.FS

// Session is one recorded scenario: the capture rate it was recorded
// at and the per-frame hand observations.
type Session struct {
	Name   string  `json:"name"`
	Fps    int     `json:"fps"`
	Frames []Frame `json:"frames"`
}

// Frame holds the hands visible in one capture frame. An empty list is
// a frame where detection found nothing.
type Frame struct {
	Hands []Hand `json:"hands"`
}

// Hand is a compact pose reference: a named finger configuration
// positioned with its index tip at (x, y) in normalized coordinates.
type Hand struct {
	Pose string  `json:"pose"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// LoadSession loads a session by name, without the .json extension.
func LoadSession(name string) (*Session, error) {
	data, err := sessionsFS.ReadFile("sessions/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", name, err)
	}
	if s.Fps <= 0 {
		return nil, fmt.Errorf("session %s: fps must be positive", name)
	}
	return &s, nil
}

// Landmarks expands the session script into per-frame detector output,
// ready for MockDetector.SetSequence.
func (s *Session) Landmarks() ([][]detector.HandLandmarks, error) {
	frames := make([][]detector.HandLandmarks, len(s.Frames))
	for i, f := range s.Frames {
		for _, h := range f.Hands {
			expanded, err := h.landmarks()
			if err != nil {
				return nil, fmt.Errorf("session %s frame %d: %w", s.Name, i, err)
			}
			frames[i] = append(frames[i], expanded)
		}
	}
	return frames, nil
}

// Interval returns the frame spacing implied by the recording rate.
func (s *Session) Interval() time.Duration {
	return time.Second / time.Duration(s.Fps)
}

func (h Hand) landmarks() (detector.HandLandmarks, error) {
	switch h.Pose {
	case "open":
		return detector.HandAt(h.X, h.Y), nil
	case "pinch":
		return detector.PinchedHandAt(h.X, h.Y), nil
	case "pinch_middle":
		return placeAt(detector.RightPinchLandmarks(), h.X, h.Y), nil
	default:
		return detector.HandLandmarks{}, fmt.Errorf("unknown pose %q", h.Pose)
	}
}

// placeAt translates a fixture hand so its index tip sits at (x, y).
func placeAt(h detector.HandLandmarks, x, y float64) detector.HandLandmarks {
	dx := x - h.Points[detector.IndexTip].X
	dy := y - h.Points[detector.IndexTip].Y
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}
