// Package detector provides hand landmark detection interfaces and types
// for the cursor control pipeline.
package detector

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in normalized frame coordinates.
// X and Y are in [0, 1]; Z is relative depth with the wrist near zero.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceTo returns the Euclidean distance to another point.
func (p Point3D) DistanceTo(o Point3D) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HandLandmarks is one hand observation: the 21 landmarks produced for a
// single frame, plus the detector's confidence in them. Observations are
// created fresh each frame and discarded once folded into the tracker's
// smoothing state; they are never persisted.
type HandLandmarks struct {
	Points        [NumLandmarks]Point3D `json:"points"`
	Handedness    string                `json:"handedness"` // "Left" or "Right"
	Score         float64               `json:"score"`      // detection confidence
	TrackingScore float64               `json:"tracking_score"`
	Timestamp     time.Time             `json:"-"`
}

// PinchDistance returns the Euclidean distance between two landmark tips,
// e.g. PinchDistance(ThumbTip, IndexTip) for the primary pinch pair.
func (h *HandLandmarks) PinchDistance(a, b int) float64 {
	return h.Points[a].DistanceTo(h.Points[b])
}
