package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrDeviceUnavailable is returned by Start when the camera cannot be
// opened at all.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// SessionState is the camera lifecycle state.
type SessionState string

const (
	// StateClosed means no session is active.
	StateClosed SessionState = "closed"
	// StateOpening means the device is opening or warming up.
	StateOpening SessionState = "opening"
	// StateStreaming means frames are flowing.
	StateStreaming SessionState = "streaming"
	// StateReconnecting means frame delivery broke and the session is
	// cycling the device.
	StateReconnecting SessionState = "reconnecting"
	// StateFailed means the device could not be (re)opened and the
	// session gave up.
	StateFailed SessionState = "failed"
)

// SessionConfig holds the capture loop parameters.
type SessionConfig struct {
	// TargetFPS is the initial frame pacing; it can be changed live
	// with SetTargetFPS.
	TargetFPS int
	// WarmupFrames is the number of frames discarded after every open
	// while camera exposure settles.
	WarmupFrames int
	// AutoReconnect re-opens the device when frame delivery breaks.
	// When off, the first read failure fails the session.
	AutoReconnect bool
	// ReconnectDelay is the pause between reopen attempts.
	ReconnectDelay time.Duration
	// MaxOpenAttempts bounds consecutive failed reopens before the
	// session gives up. Zero means retry forever.
	MaxOpenAttempts int
}

// DefaultSessionConfig returns the stock capture loop parameters.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TargetFPS:       DefaultFPS,
		WarmupFrames:    10,
		AutoReconnect:   true,
		ReconnectDelay:  2 * time.Second,
		MaxOpenAttempts: 5,
	}
}

// Session owns a camera and runs its capture loop: warmup after open,
// frame pacing at the target FPS, the latest-frame slot, and automatic
// reconnection when the device drops. All reads by the rest of the
// pipeline go through LatestFrame; nothing else touches the camera
// while a session is running.
type Session struct {
	cam Camera
	cfg SessionConfig

	mu        sync.Mutex
	state     SessionState
	latest    gocv.Mat
	hasFrame  bool
	seq       uint64
	targetFPS int
	actualFPS float64
	winCount  int
	winStart  time.Time
	openFails int
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSession wraps a camera in a managed session. The camera must not
// be open yet; the session owns its lifecycle from here on.
func NewSession(cam Camera, cfg SessionConfig) *Session {
	fps := cfg.TargetFPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Session{
		cam:       cam,
		cfg:       cfg,
		state:     StateClosed,
		targetFPS: fps,
	}
}

// Start opens the device and launches the capture loop. It fails fast
// with ErrDeviceUnavailable when the device cannot be opened; warmup
// and the transition to streaming happen on the loop goroutine.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.state = StateOpening
	s.mu.Unlock()

	if err := s.cam.Open(); err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.cam.SetFPS(s.TargetFPS())

	s.mu.Lock()
	s.running = true
	s.openFails = 0
	s.winCount = 0
	s.winStart = time.Now()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.captureLoop()
	return nil
}

// Stop halts the capture loop, closes the device and releases the
// latest-frame slot. It is idempotent and safe to call from any state.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.cam.Close()

	s.mu.Lock()
	if s.hasFrame {
		s.latest.Close()
		s.hasFrame = false
	}
	s.state = StateClosed
	s.mu.Unlock()
}

// Restart cycles the session on the same device.
func (s *Session) Restart() error {
	s.Stop()
	return s.Start()
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether frames are currently flowing.
func (s *Session) Connected() bool {
	return s.State() == StateStreaming
}

// ActualFPS returns the measured frame rate over the last window.
func (s *Session) ActualFPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actualFPS
}

// TargetFPS returns the current pacing target.
func (s *Session) TargetFPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetFPS
}

// SetTargetFPS changes frame pacing live. Values <= 0 are ignored. The
// new rate takes effect on the next loop iteration, so a raise from an
// idle rate is picked up within one idle interval.
func (s *Session) SetTargetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	changed := fps != s.targetFPS
	s.targetFPS = fps
	s.mu.Unlock()
	if changed {
		s.cam.SetFPS(fps)
	}
}

// LatestFrame returns a clone of the most recent frame and its sequence
// number. The caller owns the clone and must close it. ok is false when
// no frame has been captured yet.
func (s *Session) LatestFrame() (frame gocv.Mat, seq uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return gocv.Mat{}, 0, false
	}
	return s.latest.Clone(), s.seq, true
}

// FrameSeq returns the sequence number of the latest frame without
// copying it.
func (s *Session) FrameSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *Session) captureLoop() {
	defer close(s.doneCh)

	if !s.warmup() {
		return
	}
	s.setState(StateStreaming)

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		start := time.Now()
		frame, err := s.cam.ReadFrame()
		if err != nil {
			if !s.reconnect(err) {
				return
			}
			continue
		}
		s.publish(frame)

		if wait := s.interval() - time.Since(start); wait > 0 {
			select {
			case <-s.stopCh:
				return
			case <-time.After(wait):
			}
		}
	}
}

// warmup discards the first frames after an open; many drivers deliver
// dark or garbage frames while exposure settles. Read errors during
// warmup are skipped rather than treated as device loss.
func (s *Session) warmup() bool {
	for i := 0; i < s.cfg.WarmupFrames; i++ {
		select {
		case <-s.stopCh:
			return false
		default:
		}
		frame, err := s.cam.ReadFrame()
		if err != nil {
			continue
		}
		frame.Close()
	}
	return true
}

// reconnect cycles the device after a read failure. It returns false
// when the loop should exit: session stopped, reconnect disabled, or
// the reopen budget exhausted.
func (s *Session) reconnect(cause error) bool {
	if !s.cfg.AutoReconnect {
		log.Printf("capture: frame read failed, reconnect disabled: %v", cause)
		s.setState(StateFailed)
		return false
	}

	s.setState(StateReconnecting)
	log.Printf("capture: frame read failed, reconnecting: %v", cause)
	s.cam.Close()

	for {
		select {
		case <-s.stopCh:
			return false
		case <-time.After(s.cfg.ReconnectDelay):
		}

		// Each reopen attempt passes through the opening state so
		// status consumers can distinguish waiting from opening.
		s.setState(StateOpening)
		if err := s.cam.Open(); err != nil {
			s.mu.Lock()
			s.openFails++
			fails := s.openFails
			s.mu.Unlock()
			log.Printf("capture: reopen attempt %d failed: %v", fails, err)
			if s.cfg.MaxOpenAttempts > 0 && fails >= s.cfg.MaxOpenAttempts {
				s.setState(StateFailed)
				return false
			}
			s.setState(StateReconnecting)
			continue
		}

		s.mu.Lock()
		s.openFails = 0
		s.mu.Unlock()
		s.cam.SetFPS(s.TargetFPS())

		if !s.warmup() {
			return false
		}
		s.setState(StateStreaming)
		log.Printf("capture: camera reconnected")
		return true
	}
}

// publish stores the frame in the latest slot, taking ownership, and
// rolls the FPS measurement window.
func (s *Session) publish(frame *gocv.Mat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasFrame {
		s.latest.Close()
	}
	s.latest = *frame
	s.hasFrame = true
	s.seq++

	s.winCount++
	now := time.Now()
	if elapsed := now.Sub(s.winStart); elapsed >= time.Second {
		s.actualFPS = float64(s.winCount) / elapsed.Seconds()
		s.winCount = 0
		s.winStart = now
	}
}

func (s *Session) interval() time.Duration {
	return time.Second / time.Duration(s.TargetFPS())
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
