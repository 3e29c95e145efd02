// Package track stabilizes raw landmark detections over time. Detection
// output jitters frame to frame; the smoother applies an exponential
// moving average per landmark and rides out short detection gaps so the
// rest of the pipeline sees a steady hand.
package track

import (
	"github.com/ayusman/mudra/internal/detector"
)

// Smoother maintains the exponential moving average of one hand's
// landmarks. It is driven from a single goroutine.
type Smoother struct {
	alpha       float64
	maxGap      int
	points      [detector.NumLandmarks]detector.Point3D
	initialized bool
	missed      int
}

// NewSmoother returns a smoother with the given EMA weight for new
// observations and the number of consecutive missed frames tolerated
// before tracking is declared lost.
func NewSmoother(alpha float64, maxGap int) *Smoother {
	return &Smoother{alpha: alpha, maxGap: maxGap}
}

// SetConfig swaps the smoothing parameters without touching the
// accumulated state.
func (s *Smoother) SetConfig(alpha float64, maxGap int) {
	s.alpha = alpha
	s.maxGap = maxGap
}

// Observe folds one detection into the average and returns the smoothed
// hand. The first observation after a reset or a tracking loss seeds the
// average directly, so the cursor snaps to the hand instead of sweeping
// across the frame from a stale position.
func (s *Smoother) Observe(hand detector.HandLandmarks) detector.HandLandmarks {
	s.missed = 0
	if !s.initialized {
		s.points = hand.Points
		s.initialized = true
	} else {
		for i := range s.points {
			s.points[i].X = s.alpha*hand.Points[i].X + (1-s.alpha)*s.points[i].X
			s.points[i].Y = s.alpha*hand.Points[i].Y + (1-s.alpha)*s.points[i].Y
			s.points[i].Z = s.alpha*hand.Points[i].Z + (1-s.alpha)*s.points[i].Z
		}
	}

	out := hand
	out.Points = s.points
	return out
}

// Miss records a frame with no detection and reports whether tracking is
// now lost. Loss clears the average so the next observation seeds fresh.
func (s *Smoother) Miss() bool {
	if !s.initialized {
		return false
	}
	s.missed++
	if s.missed > s.maxGap {
		s.initialized = false
		s.missed = 0
		return true
	}
	return false
}

// Tracking reports whether the smoother currently holds a hand.
func (s *Smoother) Tracking() bool {
	return s.initialized
}

// Last returns the current smoothed landmark set. Valid only while
// Tracking reports true.
func (s *Smoother) Last() [detector.NumLandmarks]detector.Point3D {
	return s.points
}

// Reset drops all accumulated state.
func (s *Smoother) Reset() {
	s.initialized = false
	s.missed = 0
	s.points = [detector.NumLandmarks]detector.Point3D{}
}
