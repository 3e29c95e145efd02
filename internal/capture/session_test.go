package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func testFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func fastSessionConfig() SessionConfig {
	return SessionConfig{
		TargetFPS:       100,
		WarmupFrames:    2,
		AutoReconnect:   true,
		ReconnectDelay:  10 * time.Millisecond,
		MaxOpenAttempts: 3,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionStreamsFrames(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "streaming state", s.Connected)
	waitFor(t, "first frame", func() bool { return s.FrameSeq() > 0 })

	frame, seq, ok := s.LatestFrame()
	if !ok {
		t.Fatal("LatestFrame() ok = false while streaming")
	}
	defer frame.Close()
	if seq == 0 {
		t.Error("seq = 0, want > 0")
	}
	if frame.Empty() {
		t.Error("latest frame is empty")
	}
}

func TestSessionSequenceAdvances(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "first frame", func() bool { return s.FrameSeq() > 0 })
	seq := s.FrameSeq()
	waitFor(t, "sequence advance", func() bool { return s.FrameSeq() > seq })
}

func TestSessionStartFailsWithoutDevice(t *testing.T) {
	cam := NewMockCamera(nil, true)
	cam.SetOpenError(errors.New("device busy"))
	s := NewSession(cam, fastSessionConfig())

	err := s.Start()

	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Start() = %v, want ErrDeviceUnavailable", err)
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("State() = %s, want %s", got, StateFailed)
	}
}

func TestSessionReconnectsAfterReadFailure(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	// Warmup takes 2 reads; fail shortly after streaming begins.
	cam.SetFailAfter(5, nil)
	s := NewSession(cam, fastSessionConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "device reopen", func() bool { return cam.OpenCount() >= 2 })
	waitFor(t, "streaming after reconnect", s.Connected)

	seq := s.FrameSeq()
	waitFor(t, "frames after reconnect", func() bool { return s.FrameSeq() > seq })
}

// Every reopen attempt during recovery passes through the opening
// state, so status consumers can tell a reopen in progress from the
// wait between attempts.
func TestSessionReopensThroughOpeningState(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "streaming", s.Connected)

	// Sample the session state at each reopen; the hook is installed
	// after the initial open so only recovery attempts are recorded.
	var mu sync.Mutex
	var seen []SessionState
	cam.SetOpenHook(func() {
		mu.Lock()
		seen = append(seen, s.State())
		mu.Unlock()
	})
	cam.SetFailAfter(0, nil)

	waitFor(t, "streaming after reconnect", func() bool {
		return cam.OpenCount() >= 2 && s.Connected()
	})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Fatal("no reopen observed")
	}
	for i, state := range seen {
		if state != StateOpening {
			t.Errorf("state at reopen %d = %v, want %v", i, state, StateOpening)
		}
	}
}

func TestSessionFailsWhenReconnectDisabled(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	cam.SetFailAfter(5, nil)
	cfg := fastSessionConfig()
	cfg.AutoReconnect = false
	s := NewSession(cam, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "failed state", func() bool { return s.State() == StateFailed })
	if got := cam.OpenCount(); got != 1 {
		t.Errorf("OpenCount() = %d, want 1 (no reopen)", got)
	}
}

func TestSessionGivesUpAfterMaxOpenAttempts(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	cfg := fastSessionConfig()
	cfg.MaxOpenAttempts = 2
	s := NewSession(cam, cfg)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "streaming", s.Connected)
	// Arm the open failure first, then break the stream.
	cam.SetOpenError(errors.New("device gone"))
	cam.SetFailAfter(0, nil)

	waitFor(t, "failed state", func() bool { return s.State() == StateFailed })
	// Initial open plus the two failed reopen attempts.
	if got := cam.OpenCount(); got != 3 {
		t.Errorf("OpenCount() = %d, want 3", got)
	}
}

func TestSessionSetTargetFPS(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	s.SetTargetFPS(10)
	if got := s.TargetFPS(); got != 10 {
		t.Errorf("TargetFPS() = %d, want 10", got)
	}

	s.SetTargetFPS(0)
	if got := s.TargetFPS(); got != 10 {
		t.Errorf("TargetFPS() after SetTargetFPS(0) = %d, want 10", got)
	}

	s.SetTargetFPS(-5)
	if got := s.TargetFPS(); got != 10 {
		t.Errorf("TargetFPS() after SetTargetFPS(-5) = %d, want 10", got)
	}
}

func TestSessionStopIdempotent(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	// Stop before Start is a no-op.
	s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	waitFor(t, "streaming", s.Connected)

	s.Stop()
	s.Stop()

	if got := s.State(); got != StateClosed {
		t.Errorf("State() = %s, want %s", got, StateClosed)
	}
	if _, _, ok := s.LatestFrame(); ok {
		t.Error("LatestFrame() ok = true after Stop")
	}
}

func TestSessionRestart(t *testing.T) {
	cam := NewMockCamera(testFrames(t, 3), true)
	s := NewSession(cam, fastSessionConfig())

	if err := s.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	waitFor(t, "streaming", s.Connected)

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart() = %v", err)
	}
	defer s.Stop()

	waitFor(t, "streaming after restart", s.Connected)
	if got := cam.OpenCount(); got != 2 {
		t.Errorf("OpenCount() = %d, want 2", got)
	}
}

func TestSessionLatestFrameBeforeStart(t *testing.T) {
	cam := NewMockCamera(nil, true)
	s := NewSession(cam, fastSessionConfig())

	if _, _, ok := s.LatestFrame(); ok {
		t.Error("LatestFrame() ok = true with no frames captured")
	}
}
