package action

import (
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/gesture"
)

// Binding kinds.
const (
	KindKey     = "key"
	KindMouse   = "mouse"
	KindCommand = "command"
)

// Mouse binding values.
const (
	MouseLeftClick   = "left-click"
	MouseRightClick  = "right-click"
	MouseMiddleClick = "middle-click"
	MouseDoubleClick = "double-click"
	MouseScrollUp    = "scroll-up"
	MouseScrollDown  = "scroll-down"
)

// Binding maps a gesture name to an OS action. Core pointer gestures
// (pinch, pinch_hold, pinch_right, double_tap) use bindings only as
// enable switches; swipe bindings define the action itself.
type Binding struct {
	Gesture string
	Kind    string
	Value   string
	Enabled bool
}

// Config holds the dispatch parameters.
type Config struct {
	// EnableMouse gates every pointer operation.
	EnableMouse bool
	// EnableKeyboard gates keyboard shortcut bindings.
	EnableKeyboard bool
	// MoveDuration selects smooth pointer glides when positive.
	MoveDuration time.Duration
	// ClickInterval is the minimum spacing between clicks, key taps and
	// scrolls. Operations arriving faster are dropped, not queued.
	ClickInterval time.Duration
	// ScrollAmount is the number of scroll steps per scroll action.
	ScrollAmount int
	// SafeMode refuses off-screen targets and abnormally large pointer
	// jumps instead of dispatching them.
	SafeMode bool
	// DoubleClickWindow is how long a click is held back waiting for a
	// second tap to coalesce into a double click.
	DoubleClickWindow time.Duration
}

// Stats counts dispatch outcomes since startup. Suppressed counts
// events acknowledged while their class was disabled by an enable
// switch, so a killed mouse still shows activity in the counters.
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Suppressed uint64 `json:"suppressed"`
	Dropped    uint64 `json:"dropped"`
	Failed     uint64 `json:"failed"`
}

// pendingClick is a click held back for double-click coalescing.
type pendingClick struct {
	ev   gesture.Event
	x, y int
	at   time.Time
}

type firedAction struct {
	ev   gesture.Event
	x, y int
}

// Dispatcher routes gesture events to the OS input layer. It owns the
// rate limiters, the double-click coalescing buffer and the drag button
// state, and is safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	input    Input
	runner   *CommandRunner
	cfg      Config
	screenW  int
	screenH  int
	bindings map[string]Binding

	clicks  *rate.Limiter
	keys    *rate.Limiter
	scrolls *rate.Limiter

	pending  *pendingClick
	dragging bool
	hasPos   bool
	lastX    int
	lastY    int

	stats Stats
	fired []firedAction

	// OnAction is invoked outside the dispatcher lock for every action
	// that actually reached the OS, including synthesized double clicks.
	OnAction func(ev gesture.Event, x, y int)
}

// NewDispatcher returns a dispatcher wired to the given input backend.
// Screen dimensions are read once from the backend for safe-mode checks.
func NewDispatcher(input Input, cfg Config) *Dispatcher {
	w, h := input.ScreenSize()
	d := &Dispatcher{
		input:    input,
		runner:   NewCommandRunner(),
		cfg:      cfg,
		screenW:  w,
		screenH:  h,
		bindings: map[string]Binding{},
	}
	d.applyLimits()
	return d
}

func (d *Dispatcher) applyLimits() {
	iv := d.cfg.ClickInterval
	if iv <= 0 {
		d.clicks = rate.NewLimiter(rate.Inf, 1)
		d.keys = rate.NewLimiter(rate.Inf, 1)
		d.scrolls = rate.NewLimiter(rate.Inf, 1)
		return
	}
	d.clicks = rate.NewLimiter(rate.Every(iv), 1)
	d.keys = rate.NewLimiter(rate.Every(iv), 1)
	d.scrolls = rate.NewLimiter(rate.Every(iv), 1)
}

// SetConfig swaps the dispatch parameters. The rate limiters restart
// with the new interval.
func (d *Dispatcher) SetConfig(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	d.applyLimits()
}

// SetBindings replaces the active binding table.
func (d *Dispatcher) SetBindings(bindings []Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = make(map[string]Binding, len(bindings))
	for _, b := range bindings {
		d.bindings[b.Gesture] = b
	}
}

// Stats returns the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Dragging reports whether a drag button is currently held down.
func (d *Dispatcher) Dragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

// Dispatch routes one gesture event targeting the given screen pixel.
func (d *Dispatcher) Dispatch(ev gesture.Event, x, y int) {
	d.mu.Lock()
	d.fired = d.fired[:0]
	d.dispatchLocked(ev, x, y)
	fired := append([]firedAction(nil), d.fired...)
	hook := d.OnAction
	d.mu.Unlock()

	if hook != nil {
		for _, f := range fired {
			hook(f.ev, f.x, f.y)
		}
	}
}

// Flush dispatches a pending click whose double-click window has passed
// with no second tap. Call once per tick.
func (d *Dispatcher) Flush(now time.Time) {
	d.mu.Lock()
	d.fired = d.fired[:0]
	if d.pending != nil && now.Sub(d.pending.at) > d.cfg.DoubleClickWindow {
		d.flushPendingLocked()
	}
	fired := append([]firedAction(nil), d.fired...)
	hook := d.OnAction
	d.mu.Unlock()

	if hook != nil {
		for _, f := range fired {
			hook(f.ev, f.x, f.y)
		}
	}
}

// ReleaseAll flushes any pending click and releases a held drag button.
// Called on shutdown and pause so no button outlives the loop.
func (d *Dispatcher) ReleaseAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushPendingLocked()
	if d.dragging {
		if err := d.input.Toggle("left", "up"); err != nil {
			log.Printf("dispatch: release on shutdown failed: %v", err)
		}
		d.dragging = false
	}
}

func (d *Dispatcher) dispatchLocked(ev gesture.Event, x, y int) {
	switch ev.Type {
	case gesture.PressStart:
		// Feed-only: clients see the pinch close, the OS does not.
	case gesture.CursorMove, gesture.DragMove:
		d.move(ev, x, y)
	case gesture.Click:
		d.click(ev, x, y)
	case gesture.DoubleClick:
		d.dispatchClick(ev, x, y, true)
	case gesture.DragStart:
		d.dragStart(ev, x, y)
	case gesture.DragEnd:
		d.dragEnd(ev, x, y)
	case gesture.SwipeUp, gesture.SwipeDown, gesture.SwipeLeft, gesture.SwipeRight:
		d.swipe(ev, x, y)
	default:
		log.Printf("dispatch: unknown event type %q", ev.Type)
	}
}

func (d *Dispatcher) move(ev gesture.Event, x, y int) {
	if !d.cfg.EnableMouse {
		d.stats.Suppressed++
		return
	}
	if ev.Type == gesture.DragMove && !d.bindingEnabled("pinch_hold") {
		return
	}
	if !d.checkTarget(x, y) {
		return
	}
	d.moveTo(x, y)
	d.count(ev, x, y)
}

func (d *Dispatcher) click(ev gesture.Event, x, y int) {
	if !d.bindingEnabled(clickGesture(ev.Channel)) {
		return
	}
	if p := d.pending; p != nil && p.ev.Channel == ev.Channel &&
		ev.Timestamp.Sub(p.at) <= d.cfg.DoubleClickWindow {
		// Second tap inside the window: coalesce at the first tap's
		// position.
		d.pending = nil
		if d.bindingEnabled("double_tap") {
			dc := ev
			dc.Type = gesture.DoubleClick
			d.dispatchClick(dc, p.x, p.y, true)
		}
		return
	}
	d.flushPendingLocked()
	d.pending = &pendingClick{ev: ev, x: x, y: y, at: ev.Timestamp}
}

func (d *Dispatcher) flushPendingLocked() {
	if d.pending == nil {
		return
	}
	p := d.pending
	d.pending = nil
	d.dispatchClick(p.ev, p.x, p.y, false)
}

func (d *Dispatcher) dispatchClick(ev gesture.Event, x, y int, double bool) {
	if !d.cfg.EnableMouse {
		d.stats.Suppressed++
		return
	}
	if !d.clicks.Allow() {
		d.stats.Dropped++
		return
	}
	if !d.checkTarget(x, y) {
		return
	}
	d.moveTo(x, y)
	button := "left"
	if ev.Channel == gesture.ChannelRight {
		button = "right"
	}
	d.input.Click(button, double)
	d.count(ev, x, y)
}

func (d *Dispatcher) dragStart(ev gesture.Event, x, y int) {
	// A pinch escalating to a drag supersedes any click still waiting
	// on the double-click window.
	d.flushPendingLocked()
	if !d.cfg.EnableMouse {
		d.stats.Suppressed++
		return
	}
	if !d.bindingEnabled("pinch_hold") {
		return
	}
	if !d.clicks.Allow() {
		d.stats.Dropped++
		return
	}
	if !d.checkTarget(x, y) {
		return
	}
	d.moveTo(x, y)
	if err := d.input.Toggle("left", "down"); err != nil {
		d.stats.Failed++
		log.Printf("dispatch: button down failed: %v", err)
		return
	}
	d.dragging = true
	d.count(ev, x, y)
}

func (d *Dispatcher) dragEnd(ev gesture.Event, x, y int) {
	if !d.dragging {
		return
	}
	// The release always fires, bypassing limits and enable switches,
	// so a drag can never leave the button stuck down.
	if err := d.input.Toggle("left", "up"); err != nil {
		d.stats.Failed++
		log.Printf("dispatch: button up failed: %v", err)
	}
	d.dragging = false
	d.count(ev, x, y)
}

func (d *Dispatcher) swipe(ev gesture.Event, x, y int) {
	b, ok := d.bindings[string(ev.Type)]
	if !ok || !b.Enabled {
		return
	}

	switch b.Kind {
	case KindKey:
		if !d.cfg.EnableKeyboard {
			d.stats.Suppressed++
			return
		}
		if !d.keys.Allow() {
			d.stats.Dropped++
			return
		}
		key, mods := ParseKeyCombo(b.Value)
		if key == "" {
			log.Printf("dispatch: binding %q has empty key combo", b.Gesture)
			return
		}
		if err := d.input.KeyTap(key, mods); err != nil {
			d.stats.Failed++
			log.Printf("dispatch: key tap %q failed: %v", b.Value, err)
			return
		}
		d.count(ev, x, y)

	case KindMouse:
		if !d.cfg.EnableMouse {
			d.stats.Suppressed++
			return
		}
		d.mouseAction(ev, b.Value, x, y)

	case KindCommand:
		go func(runner *CommandRunner, value string) {
			if err := runner.Run(value); err != nil {
				log.Printf("dispatch: %v", err)
			}
		}(d.runner, b.Value)
		d.count(ev, x, y)

	default:
		log.Printf("dispatch: binding %q has unknown kind %q", b.Gesture, b.Kind)
	}
}

func (d *Dispatcher) mouseAction(ev gesture.Event, value string, x, y int) {
	switch value {
	case MouseLeftClick, MouseRightClick, MouseMiddleClick, MouseDoubleClick:
		if !d.clicks.Allow() {
			d.stats.Dropped++
			return
		}
		if !d.checkTarget(x, y) {
			return
		}
		d.moveTo(x, y)
		switch value {
		case MouseLeftClick:
			d.input.Click("left", false)
		case MouseRightClick:
			d.input.Click("right", false)
		case MouseMiddleClick:
			d.input.Click("center", false)
		case MouseDoubleClick:
			d.input.Click("left", true)
		}
		d.count(ev, x, y)

	case MouseScrollUp, MouseScrollDown:
		if !d.scrolls.Allow() {
			d.stats.Dropped++
			return
		}
		amount := d.cfg.ScrollAmount
		if value == MouseScrollDown {
			amount = -amount
		}
		d.input.Scroll(0, amount)
		d.count(ev, x, y)

	default:
		log.Printf("dispatch: unknown mouse action %q", value)
	}
}

// moveTo performs the pointer move and records the position for the
// safe-mode displacement check.
func (d *Dispatcher) moveTo(x, y int) {
	if d.cfg.MoveDuration > 0 {
		d.input.MoveSmooth(x, y)
	} else {
		d.input.Move(x, y)
	}
	d.lastX, d.lastY = x, y
	d.hasPos = true
}

// checkTarget enforces the safe-mode guards: the target must lie inside
// the screen and the jump from the last dispatched position must stay
// under half the screen on each axis.
func (d *Dispatcher) checkTarget(x, y int) bool {
	if !d.cfg.SafeMode {
		return true
	}
	if x < 0 || y < 0 || x > d.screenW || y > d.screenH {
		d.stats.Dropped++
		log.Printf("dispatch: safe mode refused off-screen target (%d, %d)", x, y)
		return false
	}
	if d.hasPos {
		if abs(x-d.lastX) > d.screenW/2 || abs(y-d.lastY) > d.screenH/2 {
			d.stats.Dropped++
			log.Printf("dispatch: safe mode refused jump (%d, %d) -> (%d, %d)",
				d.lastX, d.lastY, x, y)
			return false
		}
	}
	return true
}

func (d *Dispatcher) count(ev gesture.Event, x, y int) {
	d.stats.Dispatched++
	d.fired = append(d.fired, firedAction{ev: ev, x: x, y: y})
}

func (d *Dispatcher) bindingEnabled(gesture string) bool {
	b, ok := d.bindings[gesture]
	if !ok {
		// Core gestures with no binding row fall back to enabled.
		return true
	}
	return b.Enabled
}

func clickGesture(ch gesture.Channel) string {
	if ch == gesture.ChannelRight {
		return "pinch_right"
	}
	return "pinch"
}

// ParseKeyCombo splits a combo like "alt+tab" or "ctrl+shift+t" into the
// final key and its modifiers. "win" and "super" normalize to the "cmd"
// modifier name understood by the input layer.
func ParseKeyCombo(value string) (string, []string) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(value)), "+")
	keys := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	if len(keys) == 0 {
		return "", nil
	}
	key := keys[len(keys)-1]
	mods := keys[:len(keys)-1]
	for i, m := range mods {
		if m == "win" || m == "super" {
			mods[i] = "cmd"
		}
	}
	return key, mods
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
