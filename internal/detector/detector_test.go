package detector

import (
	"errors"
	"math"
	"testing"
	"time"
)

func fullJSONHand(score float64) jsonHand {
	h := jsonHand{Handedness: "Right", Score: score}
	h.Points = make([]jsonPoint, NumLandmarks)
	for i := range h.Points {
		h.Points[i] = jsonPoint{X: 0.4, Y: 0.5}
	}
	return h
}

func TestConvertHandsScreensResponse(t *testing.T) {
	now := time.Now()

	short := jsonHand{Handedness: "Right", Score: 0.9}
	short.Points = make([]jsonPoint, 5)
	for i := range short.Points {
		short.Points[i] = jsonPoint{X: 0.3, Y: 0.3}
	}

	extra := fullJSONHand(0.9)
	extra.Points = append(extra.Points, jsonPoint{})

	tests := []struct {
		name  string
		hands []jsonHand
		want  int
	}{
		{"full hand kept", []jsonHand{fullJSONHand(0.9)}, 1},
		{"truncated hand dropped", []jsonHand{short}, 0},
		{"oversized hand dropped", []jsonHand{extra}, 0},
		{"low confidence dropped", []jsonHand{fullJSONHand(0.3)}, 0},
		{"good hand survives bad sibling", []jsonHand{short, fullJSONHand(0.9)}, 1},
		{"empty response", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertHands(tt.hands, 0.7, now)
			if len(got) != tt.want {
				t.Fatalf("convertHands() kept %d hands, want %d", len(got), tt.want)
			}
			for _, lm := range got {
				if !lm.Timestamp.Equal(now) {
					t.Errorf("kept hand timestamp = %v, want %v", lm.Timestamp, now)
				}
			}
		})
	}
}

// A payload missing fingertip points must never reach the pipeline: the
// zero-filled array it would produce reads as a pinch at the origin.
func TestConvertHandsDropsZeroFillPinch(t *testing.T) {
	short := jsonHand{Handedness: "Right", Score: 0.95}
	short.Points = make([]jsonPoint, 5)

	if got := convertHands([]jsonHand{short}, 0.7, time.Now()); len(got) != 0 {
		d := got[0].PinchDistance(ThumbTip, IndexTip)
		t.Fatalf("truncated hand kept with pinch distance %v", d)
	}
}

func TestPinchDistance(t *testing.T) {
	var h HandLandmarks
	h.Points[ThumbTip] = Point3D{X: 0.1, Y: 0.2, Z: 0}
	h.Points[IndexTip] = Point3D{X: 0.4, Y: 0.6, Z: 0}

	if got := h.PinchDistance(ThumbTip, IndexTip); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("PinchDistance() = %v, want 0.5", got)
	}
	if got := h.PinchDistance(ThumbTip, ThumbTip); got != 0 {
		t.Errorf("PinchDistance() to self = %v, want 0", got)
	}
}

func TestPinchDistanceUsesDepth(t *testing.T) {
	var h HandLandmarks
	h.Points[ThumbTip] = Point3D{X: 0.5, Y: 0.5, Z: 0}
	h.Points[IndexTip] = Point3D{X: 0.5, Y: 0.5, Z: 0.03}

	if got := h.PinchDistance(ThumbTip, IndexTip); math.Abs(got-0.03) > 1e-9 {
		t.Errorf("PinchDistance() = %v, want 0.03", got)
	}
}

// The fixtures back most of the pipeline tests, so their pinch geometry
// is pinned down here against the default 0.05 threshold.
func TestFixtureGeometry(t *testing.T) {
	const threshold = 0.05

	open := OpenHandLandmarks()
	if d := open.PinchDistance(ThumbTip, IndexTip); d <= threshold {
		t.Errorf("open hand thumb-index distance = %v, want > %v", d, threshold)
	}
	if d := open.PinchDistance(ThumbTip, MiddleTip); d <= threshold {
		t.Errorf("open hand thumb-middle distance = %v, want > %v", d, threshold)
	}

	pinched := PinchedHandLandmarks()
	if d := pinched.PinchDistance(ThumbTip, IndexTip); d > threshold {
		t.Errorf("pinched hand thumb-index distance = %v, want <= %v", d, threshold)
	}
	if d := pinched.PinchDistance(ThumbTip, MiddleTip); d <= threshold {
		t.Errorf("pinched hand thumb-middle distance = %v, want > %v", d, threshold)
	}

	right := RightPinchLandmarks()
	if d := right.PinchDistance(ThumbTip, MiddleTip); d > threshold {
		t.Errorf("right pinch thumb-middle distance = %v, want <= %v", d, threshold)
	}
	if d := right.PinchDistance(ThumbTip, IndexTip); d <= threshold {
		t.Errorf("right pinch thumb-index distance = %v, want > %v", d, threshold)
	}
}

func TestHandAtPlacesIndexTip(t *testing.T) {
	h := HandAt(0.25, 0.75)
	tip := h.Points[IndexTip]
	if math.Abs(tip.X-0.25) > 1e-9 || math.Abs(tip.Y-0.75) > 1e-9 {
		t.Errorf("IndexTip = (%v, %v), want (0.25, 0.75)", tip.X, tip.Y)
	}

	// Translation preserves the pinch geometry.
	p := PinchedHandAt(0.25, 0.75)
	if d := p.PinchDistance(ThumbTip, IndexTip); d > 0.05 {
		t.Errorf("translated pinch distance = %v, want <= 0.05", d)
	}
}

func TestMockDetectorFixedHands(t *testing.T) {
	d := NewMockDetector()

	hands, err := d.Detect(nil)
	if err != nil || len(hands) != 0 {
		t.Fatalf("Detect() = %v, %v, want no hands and no error", hands, err)
	}

	d.SetHands([]HandLandmarks{OpenHandLandmarks()})
	for i := 0; i < 3; i++ {
		hands, err = d.Detect(nil)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("Detect() returned %d hands, want 1", len(hands))
		}
	}
}

func TestMockDetectorSequence(t *testing.T) {
	d := NewMockDetector()
	d.SetSequence([][]HandLandmarks{
		{OpenHandLandmarks()},
		nil,
		{PinchedHandLandmarks()},
	})

	counts := []int{1, 0, 1, 0, 0}
	for i, want := range counts {
		hands, err := d.Detect(nil)
		if err != nil {
			t.Fatalf("Detect() call %d error = %v", i, err)
		}
		if len(hands) != want {
			t.Errorf("Detect() call %d returned %d hands, want %d", i, len(hands), want)
		}
	}
}

func TestMockDetectorError(t *testing.T) {
	d := NewMockDetector()
	wantErr := errors.New("backend gone")
	d.SetError(wantErr)

	if _, err := d.Detect(nil); !errors.Is(err, wantErr) {
		t.Errorf("Detect() error = %v, want %v", err, wantErr)
	}

	d.SetError(nil)
	if _, err := d.Detect(nil); err != nil {
		t.Errorf("Detect() error = %v after clearing, want nil", err)
	}
}

func TestMockDetectorClose(t *testing.T) {
	d := NewMockDetector()
	if d.Closed() {
		t.Fatal("Closed() = true before Close")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !d.Closed() {
		t.Error("Closed() = false after Close")
	}
}
