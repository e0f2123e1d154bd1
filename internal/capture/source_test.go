package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func newTestSource(t *testing.T, cam *MockCamera) *Source {
	t.Helper()
	return NewSource(func(int) Camera { return cam }, nil)
}

func waitReady(t *testing.T, s *Source) {
	t.Helper()
	select {
	case <-s.Refresh():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first frame")
	}
	if !s.Ready() {
		t.Fatal("source should be ready after a refresh signal")
	}
}

func TestParseFacing(t *testing.T) {
	tests := []struct {
		in      string
		want    Facing
		wantErr bool
	}{
		{in: "environment", want: FacingEnvironment},
		{in: "user", want: FacingUser},
		{in: "", want: FacingEnvironment},
		{in: "sideways", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFacing(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFacing(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFacing(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSource_Acquire_DeviceUnavailable(t *testing.T) {
	cam := NewMockCamera(nil, false)
	cam.SetOpenError(errors.New("no permission"))
	s := newTestSource(t, cam)

	h, err := s.Acquire(context.Background(), FacingEnvironment)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("Acquire() error = %v, want ErrDeviceUnavailable", err)
	}
	if h != nil {
		t.Error("Acquire() should not return a handle on failure")
	}
	if s.Ready() {
		t.Error("source should not be ready after failed acquire")
	}
}

func TestSource_Acquire_UnknownFacing(t *testing.T) {
	s := NewSource(func(int) Camera { return NewMockCamera(nil, false) }, DeviceMap{FacingUser: 0})

	if _, err := s.Acquire(context.Background(), FacingEnvironment); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Acquire() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestSource_CurrentFrame_NotAcquired(t *testing.T) {
	s := NewSource(nil, nil)

	if _, err := s.CurrentFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("CurrentFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestSource_Release_NilHandle(t *testing.T) {
	s := NewSource(nil, nil)
	if err := s.Release(nil); err != nil {
		t.Errorf("Release(nil) = %v, want nil", err)
	}
}

func TestSource_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.SetInterval(5 * time.Millisecond)
	s := newTestSource(t, cam)

	h, err := s.Acquire(context.Background(), FacingUser)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if h.Facing() != FacingUser {
		t.Errorf("Facing() = %q, want %q", h.Facing(), FacingUser)
	}

	t.Run("second acquire is rejected", func(t *testing.T) {
		if _, err := s.Acquire(context.Background(), FacingUser); !errors.Is(err, ErrSourceBusy) {
			t.Errorf("Acquire() error = %v, want ErrSourceBusy", err)
		}
	})

	waitReady(t, s)

	t.Run("current frame is a copy with dimensions", func(t *testing.T) {
		f, err := s.CurrentFrame()
		if err != nil {
			t.Fatalf("CurrentFrame() error = %v", err)
		}
		defer f.Close()

		if f.Seq == 0 {
			t.Error("frame sequence should start at 1")
		}
		if w, h := f.Size(); w != 640 || h != 480 {
			t.Errorf("Size() = %dx%d, want 640x480", w, h)
		}
	})

	t.Run("frames advance", func(t *testing.T) {
		first, err := s.CurrentFrame()
		if err != nil {
			t.Fatalf("CurrentFrame() error = %v", err)
		}
		defer first.Close()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case <-s.Refresh():
			case <-deadline:
				t.Fatal("source did not advance")
			}
			next, err := s.CurrentFrame()
			if err != nil {
				t.Fatalf("CurrentFrame() error = %v", err)
			}
			seq := next.Seq
			next.Close()
			if seq > first.Seq {
				return
			}
		}
	})

	if err := s.Release(h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Release()")
	}
	if s.Ready() {
		t.Error("source should not be ready after Release()")
	}

	t.Run("release is idempotent", func(t *testing.T) {
		if err := s.Release(h); err != nil {
			t.Errorf("second Release() = %v, want nil", err)
		}
		if got := cam.Closes(); got != 1 {
			t.Errorf("camera closed %d times, want 1", got)
		}
	})

	t.Run("can acquire again after release", func(t *testing.T) {
		h2, err := s.Acquire(context.Background(), FacingEnvironment)
		if err != nil {
			t.Fatalf("Acquire() after release error = %v", err)
		}
		if err := s.Release(h2); err != nil {
			t.Errorf("Release() error = %v", err)
		}
		if err := s.Release(h); err != nil {
			t.Errorf("Release() of stale handle = %v, want nil", err)
		}
	})
}
