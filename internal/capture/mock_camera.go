package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing, with optional
// read and open failure injection for exercising reconnect handling.
type MockCamera struct {
	frames    []*gocv.Mat
	index     int
	loop      bool
	mu        sync.Mutex
	running   bool
	fps       int
	failAfter int
	failErr   error
	openErr   error
	opens     int
	openHook  func()
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:    frames,
		loop:      loop,
		fps:       15,
		failAfter: -1,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	hook := c.openHook
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if c.failAfter == 0 {
		// One-shot failure: the device "recovers" after a reopen.
		c.failAfter = -1
		err := c.failErr
		if err == nil {
			err = ErrReadFailed
		}
		return nil, err
	}
	if c.failAfter > 0 {
		c.failAfter--
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps > 0 {
		c.fps = fps
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// SetFailAfter makes ReadFrame fail once after n successful reads.
func (c *MockCamera) SetFailAfter(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAfter = n
	c.failErr = err
}

// SetOpenHook installs a callback invoked at the start of every Open,
// before any injected error is applied. Tests use it to observe caller
// state at open time.
func (c *MockCamera) SetOpenHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openHook = fn
}

// SetOpenError makes Open fail until cleared with nil.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// OpenCount returns how many times Open has been called.
func (c *MockCamera) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}
