package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a Detector for tests. It returns a fixed set of hands,
// or a scripted per-call sequence when one is set.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	cursor   int
	err      error
	closed   bool
}

// NewMockDetector returns a mock that detects nothing until configured.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands fixes the result returned by every subsequent Detect call.
func (d *MockDetector) SetHands(hands []HandLandmarks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hands = hands
	d.sequence = nil
	d.cursor = 0
}

// SetSequence scripts one result per Detect call. Once the sequence is
// exhausted, Detect reports no hands.
func (d *MockDetector) SetSequence(seq [][]HandLandmarks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sequence = seq
	d.cursor = 0
}

// SetError makes every subsequent Detect call fail.
func (d *MockDetector) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Detect implements Detector.
func (d *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.sequence != nil {
		if d.cursor >= len(d.sequence) {
			return nil, nil
		}
		hands := d.sequence[d.cursor]
		d.cursor++
		return hands, nil
	}
	return d.hands, nil
}

// Close implements Detector.
func (d *MockDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *MockDetector) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
