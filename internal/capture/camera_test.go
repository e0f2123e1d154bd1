package capture

import (
	"errors"
	"testing"
)

func TestNewCamera(t *testing.T) {
	for _, deviceID := range []int{0, 1, 2} {
		cam := NewCamera(deviceID)

		if cam == nil {
			t.Fatalf("NewCamera(%d) returned nil", deviceID)
		}
		if got := cam.FPS(); got != DefaultFPS {
			t.Errorf("device %d: FPS() = %d, want %d", deviceID, got, DefaultFPS)
		}
		if cam.IsOpen() {
			t.Errorf("device %d: camera should start closed", deviceID)
		}
	}
}

func TestCameraFactory(t *testing.T) {
	tests := []struct {
		name     string
		settings DeviceSettings
		want     DeviceSettings
	}{
		{
			name:     "explicit settings",
			settings: DeviceSettings{Width: 1280, Height: 720, FPS: 15},
			want:     DeviceSettings{Width: 1280, Height: 720, FPS: 15},
		},
		{
			name:     "zero value uses defaults",
			settings: DeviceSettings{},
			want:     DefaultDeviceSettings(),
		},
		{
			name:     "partial resolution uses default resolution",
			settings: DeviceSettings{Width: 1280, FPS: 24},
			want:     DeviceSettings{Width: DefaultWidth, Height: DefaultHeight, FPS: 24},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := CameraFactory(tt.settings)(3).(*deviceCamera)

			if cam.deviceID != 3 {
				t.Errorf("deviceID = %d, want 3", cam.deviceID)
			}
			if cam.settings != tt.want {
				t.Errorf("settings = %+v, want %+v", cam.settings, tt.want)
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(0)

	steps := []struct {
		fps  int
		want int
	}{
		{10, 10},
		{1, 1},
		{0, 1},  // ignored
		{-5, 1}, // ignored
		{30, 30},
	}

	for _, s := range steps {
		cam.SetFPS(s.fps)
		if got := cam.FPS(); got != s.want {
			t.Errorf("after SetFPS(%d): FPS() = %d, want %d", s.fps, got, s.want)
		}
	}
}

func TestCamera_Closed(t *testing.T) {
	cam := NewCamera(0)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on a closed camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(0)
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}
	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}
	if err := cam.Open(); err != nil {
		t.Errorf("second Open() = %v, want nil", err)
	}

	mat, err := cam.ReadFrame()
	switch {
	case errors.Is(err, ErrReadFailed):
		t.Logf("device opened but delivered no frame: %v", err)
	case err != nil:
		t.Errorf("ReadFrame() failed: %v", err)
	default:
		if mat.Cols() != DefaultWidth || mat.Rows() != DefaultHeight {
			t.Logf("frame is %dx%d; device ignored the requested size", mat.Cols(), mat.Rows())
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_Open_MissingDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(99)

	err := cam.Open()
	if err == nil {
		cam.Close()
		t.Skip("device 99 unexpectedly present")
	}
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Open() error = %v, want ErrDeviceUnavailable", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after a failed Open()")
	}
}

func TestFrame_Close(t *testing.T) {
	t.Run("nil frame", func(t *testing.T) {
		var f *Frame
		f.Close()
		if w, h := f.Size(); w != 0 || h != 0 {
			t.Errorf("Size() = %dx%d, want 0x0", w, h)
		}
	})

	t.Run("frame without mat", func(t *testing.T) {
		f := &Frame{Seq: 3}
		f.Close()
		f.Close()
	})
}
