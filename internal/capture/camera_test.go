package capture

import (
	"errors"
	"testing"
)

func TestNewCameraDefaults(t *testing.T) {
	cam := NewCamera(0)

	if got := cam.FPS(); got != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() = true before Open")
	}
}

func TestNewCameraWithSizeFallsBackOnBadDimensions(t *testing.T) {
	cam := NewCameraWithSize(0, -1, 0)

	impl, ok := cam.(*cameraImpl)
	if !ok {
		t.Fatalf("NewCameraWithSize returned %T, want *cameraImpl", cam)
	}
	if impl.width != DefaultWidth || impl.height != DefaultHeight {
		t.Errorf("size = %dx%d, want %dx%d",
			impl.width, impl.height, DefaultWidth, DefaultHeight)
	}
}

func TestCameraSetFPS(t *testing.T) {
	tests := []struct {
		name string
		fps  int
		want int
	}{
		{"positive value applies", 60, 60},
		{"zero ignored", 0, DefaultFPS},
		{"negative ignored", -10, DefaultFPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(0)
			cam.SetFPS(tt.fps)
			if got := cam.FPS(); got != tt.want {
				t.Errorf("FPS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCameraReadBeforeOpen(t *testing.T) {
	cam := NewCamera(0)

	_, err := cam.ReadFrame()

	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCameraCloseBeforeOpen(t *testing.T) {
	cam := NewCamera(0)

	if err := cam.Close(); err != nil {
		t.Errorf("Close() before Open = %v, want nil", err)
	}
}

// TestCameraHardware exercises a real device when one is attached.
func TestCameraHardware(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping hardware test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("no camera available: %v", err)
	}
	defer cam.Close()

	frame, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() = %v", err)
	}
	defer frame.Close()

	if frame.Empty() {
		t.Error("captured frame is empty")
	}
}
