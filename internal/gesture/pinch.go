package gesture

import "time"

// channelState is the position of a pinch channel in its
// Idle -> Triggered -> Holding cycle.
type channelState int

const (
	stateIdle channelState = iota
	stateTriggered
	stateHolding
)

// pinchChannel tracks one fingertip pair. The left (thumb-index) channel
// can escalate a held pinch into a drag; the right (thumb-middle) channel
// never drags and clicks on release no matter how long it was held.
type pinchChannel struct {
	name      Channel
	cfg       Config
	allowHold bool

	state     channelState
	enteredAt time.Time
	origin    Point
	lastPos   Point
	lastClick time.Time
}

func newPinchChannel(name Channel, allowHold bool, cfg Config) *pinchChannel {
	return &pinchChannel{name: name, allowHold: allowHold, cfg: cfg}
}

func (c *pinchChannel) setConfig(cfg Config) {
	c.cfg = cfg
}

// update advances the channel one tick with the current pair distance and
// cursor position. A distance exactly at the threshold counts as pinched,
// so the predicate is deterministic at the boundary.
func (c *pinchChannel) update(distance float64, pos Point, now time.Time) []Event {
	pinched := distance <= c.cfg.PinchThreshold
	c.lastPos = pos

	switch c.state {
	case stateIdle:
		if pinched {
			c.state = stateTriggered
			c.enteredAt = now
			c.origin = pos
			return []Event{{Type: PressStart, Channel: c.name, Position: pos, Timestamp: now}}
		}

	case stateTriggered:
		if !pinched {
			c.state = stateIdle
			if now.Sub(c.lastClick) >= c.cfg.Debounce {
				c.lastClick = now
				// The click lands at the position where the pinch began,
				// not where the fingers separated.
				return []Event{{Type: Click, Channel: c.name, Position: c.origin, Timestamp: now}}
			}
			// Inside the debounce window the click is dropped, not queued.
			return nil
		}
		if c.allowHold && now.Sub(c.enteredAt) >= c.cfg.HoldTime {
			c.state = stateHolding
			return []Event{{Type: DragStart, Channel: c.name, Position: pos, Timestamp: now}}
		}

	case stateHolding:
		if !pinched {
			c.state = stateIdle
			return []Event{{Type: DragEnd, Channel: c.name, Position: pos, Timestamp: now}}
		}
		return []Event{{Type: DragMove, Channel: c.name, Position: pos, Timestamp: now}}
	}

	return nil
}

// lose forces the channel back to Idle on tracking loss. An active drag
// emits DragEnd at the last known position so no drag is left open; a
// pinch that never completed produces nothing.
func (c *pinchChannel) lose(now time.Time) []Event {
	prev := c.state
	c.state = stateIdle
	if prev == stateHolding {
		return []Event{{Type: DragEnd, Channel: c.name, Position: c.lastPos, Timestamp: now}}
	}
	return nil
}

// dragging reports whether the channel currently holds a drag.
func (c *pinchChannel) dragging() bool {
	return c.state == stateHolding
}
