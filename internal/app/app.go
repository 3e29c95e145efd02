// Package app wires the full pipeline: camera session, hand detection,
// landmark smoothing, gesture classification, cursor mapping and action
// dispatch, all driven by a single tick loop.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/cursor"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/track"
)

// Config holds the application dependencies. Camera, Detector and Input
// default to the real implementations when nil, so tests can inject
// mocks field by field.
type Config struct {
	Config   *config.Config
	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
	Input    action.Input
}

// App orchestrates capture, detection and dispatch.
type App struct {
	mu         sync.RWMutex
	cfg        *config.Config
	pendingCfg *config.Config

	store      *store.Store
	session    *capture.Session
	camFactory func(cfg *config.Config) capture.Camera
	det        detector.Detector
	input      action.Input
	smoother   *track.Smoother
	engine     *gesture.Engine
	mapper     *cursor.Mapper
	dispatcher *action.Dispatcher

	running bool
	paused  bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// tick-loop state, owned by the pipeline goroutine
	lastSession  *capture.Session
	lastSeq      uint64
	idleTicks    int
	idleMode     bool
	pauseHandled bool
	pressPixels  map[gesture.Channel][2]int
	lastPX       int
	lastPY       int

	// status fields, guarded by mu
	tracking     bool
	frameCount   uint64
	gestureCount uint64
	handZone     cursor.Zone
	edgeDist     float64

	// OnEvent receives every gesture event plus dispatcher-synthesized
	// double clicks, on the pipeline goroutine. Set before Start.
	OnEvent func(ev gesture.Event)

	// OnPauseChange fires on every pause state transition, whether it
	// came from the tray or the REST API. Set before Start.
	OnPauseChange func(paused bool)
}

// Status is the live engine snapshot served on the status feed.
type Status struct {
	Running          bool         `json:"running"`
	Paused           bool         `json:"paused"`
	TrackingActive   bool         `json:"tracking_active"`
	CameraConnected  bool         `json:"camera_connected"`
	CameraState      string       `json:"camera_state"`
	ActualFps        float64      `json:"actual_fps"`
	TargetFps        int          `json:"target_fps"`
	FrameCount       uint64       `json:"frame_count"`
	GesturesDetected uint64       `json:"gestures_detected"`
	HandZone         string       `json:"hand_zone,omitempty"`
	EdgeProximity    float64      `json:"edge_proximity"`
	Actions          action.Stats `json:"actions"`
}

// New builds the pipeline from configuration, filling in real
// implementations for any dependency not injected.
func New(deps Config) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	camFactory := func(c *config.Config) capture.Camera {
		return capture.NewCameraWithSize(c.Camera.DeviceIndex, c.Camera.Width, c.Camera.Height)
	}
	if deps.Camera != nil {
		injected := deps.Camera
		camFactory = func(*config.Config) capture.Camera { return injected }
	}
	cam := camFactory(cfg)

	det := deps.Detector
	if det == nil {
		if mp, err := detector.NewMediaPipeDetector(detectorConfig(cfg)); err == nil {
			det = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			det = detector.NewMockDetector()
		}
	}

	input := deps.Input
	if input == nil {
		input = action.NewSystemInput()
	}

	a := &App{
		cfg:         cfg,
		store:       deps.Store,
		session:     capture.NewSession(cam, sessionConfig(cfg)),
		camFactory:  camFactory,
		det:         det,
		input:       input,
		smoother:    track.NewSmoother(cfg.Tracking.SmoothingFactor, cfg.Tracking.MaxGapFrames),
		engine:      gesture.NewEngine(gestureConfig(cfg)),
		mapper:      cursor.NewMapper(cursorConfig(cfg, input)),
		dispatcher:  action.NewDispatcher(input, actionConfig(cfg)),
		pressPixels: make(map[gesture.Channel][2]int),
	}
	a.dispatcher.OnAction = a.onDispatched

	if err := a.ReloadBindings(); err != nil {
		return nil, err
	}
	return a, nil
}

// Start opens the camera session and launches the tick loop. A camera
// open failure is returned to the caller; the control surface can still
// run and retry with a camera restart.
func (a *App) Start() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	session := a.session
	a.mu.Unlock()

	if err := session.Start(); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return err
	}

	go a.run()
	log.Println("Pipeline started")
	return nil
}

// Stop halts the tick loop, releases any held input and shuts the
// camera session down. Safe to call more than once.
func (a *App) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stopCh)
	done := a.doneCh
	a.mu.Unlock()

	<-done

	// Close out any drag before the input layer goes away.
	for _, ev := range a.engine.Reset(time.Now()) {
		a.dispatcher.Dispatch(ev, a.lastPX, a.lastPY)
	}
	a.dispatcher.ReleaseAll()
	a.session.Stop()
	if err := a.det.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}

	stats := a.dispatcher.Stats()
	log.Printf("Pipeline stopped (dispatched %d, suppressed %d, dropped %d, failed %d)",
		stats.Dispatched, stats.Suppressed, stats.Dropped, stats.Failed)
}

// Running reports whether the tick loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Paused reports whether event processing is suspended.
func (a *App) Paused() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paused
}

// SetPaused suspends or resumes event processing. The camera keeps
// streaming while paused so resume is instant. The tick loop releases
// any held drag when it observes the pause.
func (a *App) SetPaused(paused bool) {
	a.mu.Lock()
	if a.paused == paused {
		a.mu.Unlock()
		return
	}
	a.paused = paused
	a.mu.Unlock()

	if paused {
		log.Println("Processing paused")
	} else {
		log.Println("Processing resumed")
	}
	if a.OnPauseChange != nil {
		a.OnPauseChange(paused)
	}
}

// TogglePause flips the paused state and returns the new value.
func (a *App) TogglePause() bool {
	paused := !a.Paused()
	a.SetPaused(paused)
	return paused
}

// CurrentConfig returns the active configuration snapshot.
func (a *App) CurrentConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cfg := *a.cfg
	return &cfg
}

// ApplyConfig validates the new configuration and hands it to the tick
// loop, which swaps it in between ticks. Camera device and resolution
// changes additionally need RestartCamera to take effect.
func (a *App) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	a.pendingCfg = cfg
	running := a.running
	a.mu.Unlock()

	// With no loop running, apply immediately so the next Start uses
	// the new parameters.
	if !running {
		a.applyPending()
	}
	return nil
}

// RestartCamera cycles the capture session, rebuilding the camera when
// the device or resolution changed in config.
func (a *App) RestartCamera() error {
	a.mu.Lock()
	cfg := a.cfg
	// A config queued by ApplyConfig may carry the new device; use it
	// rather than restarting onto the old one.
	if a.pendingCfg != nil {
		cfg = a.pendingCfg
	}
	old := a.session
	a.mu.Unlock()

	old.Stop()

	session := capture.NewSession(a.camFactory(cfg), sessionConfig(cfg))

	a.mu.Lock()
	a.session = session
	running := a.running
	a.mu.Unlock()

	if !running {
		return nil
	}
	return session.Start()
}

// ReloadBindings reloads the binding table from the store into the
// dispatcher. Without a store the dispatcher keeps built-in defaults.
func (a *App) ReloadBindings() error {
	if a.store == nil {
		return nil
	}
	bindings, err := a.store.Bindings().List()
	if err != nil {
		return err
	}
	converted := make([]action.Binding, len(bindings))
	for i, b := range bindings {
		converted[i] = action.Binding{
			Gesture: b.Gesture,
			Kind:    b.Kind,
			Value:   b.Value,
			Enabled: b.Enabled,
		}
	}
	a.dispatcher.SetBindings(converted)
	return nil
}

// Status returns the live engine snapshot.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Running:          a.running,
		Paused:           a.paused,
		TrackingActive:   a.tracking,
		CameraConnected:  a.session.Connected(),
		CameraState:      string(a.session.State()),
		ActualFps:        a.session.ActualFPS(),
		TargetFps:        a.session.TargetFPS(),
		FrameCount:       a.frameCount,
		GesturesDetected: a.gestureCount,
		EdgeProximity:    a.edgeDist,
		Actions:          a.dispatcher.Stats(),
	}
	if a.tracking {
		st.HandZone = a.handZone.String()
	}
	return st
}

// Session returns the active capture session.
func (a *App) Session() *capture.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// SetDetector swaps the hand detector. Call before Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.det = d
}

// onDispatched forwards dispatcher-level actions to the event feed and
// the history store. Continuous movement is not recorded.
func (a *App) onDispatched(ev gesture.Event, x, y int) {
	switch ev.Type {
	case gesture.CursorMove, gesture.DragMove:
		return
	}
	if ev.Type == gesture.DoubleClick {
		a.emit(ev)
	}
	if a.store != nil {
		if err := a.store.Events().Record(string(ev.Type), string(ev.Channel), x, y); err != nil {
			log.Printf("app: record event: %v", err)
		}
	}
}

// emit hands an event to the feed hook when one is set.
func (a *App) emit(ev gesture.Event) {
	if a.OnEvent != nil {
		a.OnEvent(ev)
	}
}

// Config section converters.

func sessionConfig(c *config.Config) capture.SessionConfig {
	return capture.SessionConfig{
		TargetFPS:       c.System.ActiveFps,
		WarmupFrames:    c.Camera.WarmupFrames,
		AutoReconnect:   c.Camera.AutoReconnect,
		ReconnectDelay:  c.Camera.ReconnectDelay(),
		MaxOpenAttempts: 5,
	}
}

func detectorConfig(c *config.Config) detector.Config {
	return detector.Config{
		MaxHands:        c.Tracking.MaxHands,
		MinConfidence:   c.Tracking.MinDetectionConfidence,
		MinTrackingConf: c.Tracking.MinTrackingConfidence,
	}
}

func gestureConfig(c *config.Config) gesture.Config {
	return gesture.Config{
		PinchThreshold:    c.Gestures.PinchThreshold,
		Debounce:          c.Gestures.Debounce(),
		HoldTime:          c.Gestures.HoldTime(),
		ClickRelease:      c.Gestures.ClickRelease(),
		VelocityThreshold: c.Gestures.VelocityThreshold,
	}
}

func cursorConfig(c *config.Config, input action.Input) cursor.Config {
	w, h := c.Cursor.ScreenWidth, c.Cursor.ScreenHeight
	if w <= 0 || h <= 0 {
		w, h = input.ScreenSize()
	}
	return cursor.Config{
		ScreenW:     w,
		ScreenH:     h,
		Sensitivity: c.Cursor.Sensitivity,
		DeadZone:    c.Cursor.DeadZone,
		InvertX:     c.Cursor.InvertX,
		InvertY:     c.Cursor.InvertY,
		MarginPx:    c.Cursor.MarginPx,
		Smoothing:   c.Cursor.Smoothing,
	}
}

func actionConfig(c *config.Config) action.Config {
	return action.Config{
		EnableMouse:       c.Actions.EnableMouse,
		EnableKeyboard:    c.Actions.EnableKeyboard,
		MoveDuration:      c.Actions.MoveDuration(),
		ClickInterval:     c.Actions.ClickInterval(),
		ScrollAmount:      c.Actions.ScrollAmount,
		SafeMode:          c.Actions.SafeMode,
		DoubleClickWindow: c.Gestures.DoubleClickWindow(),
	}
}
