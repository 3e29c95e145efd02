package gesture

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Engine composes the two pinch channels with cursor tracking and the
// swipe watcher over a stream of smoothed observations. It is driven
// from a single goroutine and is not safe for concurrent use.
type Engine struct {
	cfg        Config
	left       *pinchChannel
	right      *pinchChannel
	swipe      *SwipeWatcher
	lastCursor *Point
}

// NewEngine returns an engine with both channels idle.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:   cfg,
		left:  newPinchChannel(ChannelLeft, true, cfg),
		right: newPinchChannel(ChannelRight, false, cfg),
		swipe: NewSwipeWatcher(cfg),
	}
}

// SetConfig swaps the timing parameters. Call between ticks only.
func (e *Engine) SetConfig(cfg Config) {
	e.cfg = cfg
	e.left.setConfig(cfg)
	e.right.setConfig(cfg)
	e.swipe.SetConfig(cfg)
}

// Process folds one smoothed observation into the engine and returns the
// events it produced this tick, ordered cursor motion first, then left
// channel, right channel, swipe.
func (e *Engine) Process(hand *detector.HandLandmarks, now time.Time) []Event {
	if hand == nil {
		return e.Reset(now)
	}

	cursor := Point{
		X: hand.Points[detector.IndexTip].X,
		Y: hand.Points[detector.IndexTip].Y,
	}
	wrist := Point{
		X: hand.Points[detector.Wrist].X,
		Y: hand.Points[detector.Wrist].Y,
	}
	leftDist := hand.PinchDistance(detector.ThumbTip, detector.IndexTip)
	rightDist := hand.PinchDistance(detector.ThumbTip, detector.MiddleTip)

	var events []Event

	if e.lastCursor != nil {
		dx := math.Abs(cursor.X - e.lastCursor.X)
		dy := math.Abs(cursor.Y - e.lastCursor.Y)
		if dx > e.cfg.VelocityThreshold || dy > e.cfg.VelocityThreshold {
			events = append(events, Event{Type: CursorMove, Position: cursor, Timestamp: now})
		}
	}

	events = append(events, e.left.update(leftDist, cursor, now)...)
	events = append(events, e.right.update(rightDist, cursor, now)...)

	if ev := e.swipe.Observe(wrist, now); ev != nil {
		events = append(events, *ev)
	}

	last := cursor
	e.lastCursor = &last
	return events
}

// Reset forces both channels back to Idle, clears the swipe window and
// forgets the last cursor position. An open drag emits DragEnd so the
// pointer is never left with a button held down.
func (e *Engine) Reset(now time.Time) []Event {
	var events []Event
	events = append(events, e.left.lose(now)...)
	events = append(events, e.right.lose(now)...)
	e.swipe.Reset()
	e.lastCursor = nil
	return events
}

// Dragging reports whether the left channel currently holds a drag.
func (e *Engine) Dragging() bool {
	return e.left.dragging()
}
