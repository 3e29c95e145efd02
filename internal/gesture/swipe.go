package gesture

import (
	"math"
	"time"
)

const (
	// swipeWindow bounds the rolling wrist-position window.
	swipeWindow = 150 * time.Millisecond
	// swipeMinSamples is the minimum number of observations a window
	// needs before it can fire.
	swipeMinSamples = 3
)

type swipeSample struct {
	pos Point
	t   time.Time
}

// SwipeWatcher detects fast directional wrist motion independently of the
// pinch channels. After firing it stays disarmed until wrist velocity
// falls back below the threshold, so one continuous motion can never
// produce two swipes.
type SwipeWatcher struct {
	cfg    Config
	window []swipeSample
	armed  bool
}

// NewSwipeWatcher returns an armed watcher with an empty window.
func NewSwipeWatcher(cfg Config) *SwipeWatcher {
	return &SwipeWatcher{cfg: cfg, armed: true}
}

// SetConfig swaps the velocity threshold used by the watcher.
func (w *SwipeWatcher) SetConfig(cfg Config) {
	w.cfg = cfg
}

// Observe feeds one wrist position and returns a swipe event when the
// window shows sustained fast motion with a consistent dominant axis
// and direction.
func (w *SwipeWatcher) Observe(wrist Point, now time.Time) *Event {
	w.window = append(w.window, swipeSample{pos: wrist, t: now})
	cutoff := now.Add(-swipeWindow)
	for len(w.window) > 0 && w.window[0].t.Before(cutoff) {
		w.window = w.window[1:]
	}

	if len(w.window) < swipeMinSamples {
		return nil
	}

	first := w.window[0].pos
	last := w.window[len(w.window)-1].pos
	netX := last.X - first.X
	netY := last.Y - first.Y
	horizontal := math.Abs(netX) >= math.Abs(netY)

	net := netY
	if horizontal {
		net = netX
	}

	fast := true
	stable := true
	for i := 1; i < len(w.window); i++ {
		var step float64
		if horizontal {
			step = w.window[i].pos.X - w.window[i-1].pos.X
		} else {
			step = w.window[i].pos.Y - w.window[i-1].pos.Y
		}
		if math.Abs(step) <= w.cfg.VelocityThreshold {
			fast = false
		}
		if step != 0 && math.Signbit(step) != math.Signbit(net) {
			stable = false
		}
	}

	if !fast {
		// Velocity dropped below the threshold: the watcher re-arms.
		w.armed = true
		return nil
	}
	if !stable || !w.armed {
		return nil
	}

	w.armed = false
	var typ EventType
	switch {
	case horizontal && netX > 0:
		typ = SwipeRight
	case horizontal:
		typ = SwipeLeft
	case netY > 0:
		typ = SwipeDown
	default:
		typ = SwipeUp
	}
	return &Event{Type: typ, Position: wrist, Timestamp: now}
}

// Reset clears the window and re-arms the watcher.
func (w *SwipeWatcher) Reset() {
	w.window = w.window[:0]
	w.armed = true
}
