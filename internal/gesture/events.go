// Package gesture turns a time series of smoothed hand landmarks into
// discrete, debounced gesture events, disambiguating quick taps from
// holds and directional swipes.
package gesture

import "time"

// EventType identifies a discrete gesture event.
type EventType string

const (
	// PressStart fires when a pinch pair first closes. It is informational
	// only: the dispatcher performs no OS action for it.
	PressStart EventType = "press_start"
	// Click fires on a pinch released before the hold time.
	Click EventType = "click"
	// DoubleClick is synthesized by the action dispatcher when two clicks
	// on one channel land inside the double-click window.
	DoubleClick EventType = "double_click"
	// DragStart fires when a pinch has been held for the hold time.
	DragStart EventType = "drag_start"
	// DragMove fires every tick while a drag is held.
	DragMove EventType = "drag_move"
	// DragEnd fires when a held pinch releases, or is forced on tracking loss.
	DragEnd EventType = "drag_end"
	// CursorMove fires when the cursor point moves past the motion epsilon.
	CursorMove EventType = "cursor_move"

	SwipeUp    EventType = "swipe_up"
	SwipeDown  EventType = "swipe_down"
	SwipeLeft  EventType = "swipe_left"
	SwipeRight EventType = "swipe_right"
)

// Channel identifies an independently tracked pinch pair.
type Channel string

const (
	// ChannelLeft is the thumb-index pair, driving left click and drag.
	ChannelLeft Channel = "left"
	// ChannelRight is the thumb-middle pair, driving right click.
	ChannelRight Channel = "right"
)

// Point is a position in normalized frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Event is one discrete gesture occurrence. Events are consumed within
// the tick that produced them and never retained.
type Event struct {
	Type      EventType `json:"type"`
	Channel   Channel   `json:"channel,omitempty"`
	Position  Point     `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds the timing and threshold parameters for gesture
// classification. It is an immutable snapshot: the engine is handed a
// replacement between ticks rather than having fields mutated in place.
type Config struct {
	// PinchThreshold is the normalized fingertip distance at or below
	// which a pair counts as pinched.
	PinchThreshold float64

	// Debounce is the minimum spacing between clicks on one channel.
	Debounce time.Duration

	// HoldTime is how long a pinch must be held to become a drag.
	HoldTime time.Duration

	// ClickRelease is the quick-tap release window. Kept for settings
	// compatibility; classification is driven by HoldTime.
	ClickRelease time.Duration

	// VelocityThreshold is the per-tick normalized displacement used for
	// both the cursor motion epsilon and swipe detection.
	VelocityThreshold float64
}

// DefaultConfig returns the stock gesture timing parameters.
func DefaultConfig() Config {
	return Config{
		PinchThreshold:    0.05,
		Debounce:          200 * time.Millisecond,
		HoldTime:          300 * time.Millisecond,
		ClickRelease:      200 * time.Millisecond,
		VelocityThreshold: 0.01,
	}
}
