package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Facing selects which camera the source acquires.
type Facing string

const (
	// FacingEnvironment is the rear camera, pointed at the signer.
	FacingEnvironment Facing = "environment"
	// FacingUser is the front camera, pointed at the device user.
	FacingUser Facing = "user"
)

// ParseFacing converts a configuration string into a Facing.
func ParseFacing(s string) (Facing, error) {
	switch Facing(s) {
	case FacingEnvironment, FacingUser:
		return Facing(s), nil
	case "":
		return FacingEnvironment, nil
	default:
		return "", fmt.Errorf("unknown camera facing %q", s)
	}
}

// DeviceMap maps a facing to a camera device ID.
type DeviceMap map[Facing]int

// DefaultDevices maps the environment camera to device 0 and the user camera to device 1.
func DefaultDevices() DeviceMap {
	return DeviceMap{
		FacingEnvironment: 0,
		FacingUser:        1,
	}
}

var (
	// ErrNoFrame is returned by CurrentFrame before the first frame has been decoded.
	ErrNoFrame = errors.New("no frame available")
	// ErrSourceBusy is returned when Acquire is called while a handle is still held.
	ErrSourceBusy = errors.New("frame source already acquired")
)

// readRetryDelay is the pause after a failed device read before trying again.
const readRetryDelay = 10 * time.Millisecond

// Handle represents one acquisition of the camera. It is returned by Acquire
// and passed back to Release.
type Handle struct {
	facing Facing
	camera Camera
	stop   chan struct{}
	done   chan struct{}

	once sync.Once
	err  error
}

// Facing returns the camera facing this handle was acquired with.
func (h *Handle) Facing() Facing {
	return h.facing
}

// Source owns camera acquisition and exposes the latest decoded frame.
// A background goroutine reads the device at its native rate, keeps only the
// newest frame, and signals Refresh each time the frame advances.
type Source struct {
	newCamera func(deviceID int) Camera
	devices   DeviceMap

	mu      sync.Mutex
	handle  *Handle
	latest  *Frame
	seq     uint64
	refresh chan struct{}
}

// NewSource creates a Source that opens cameras with newCamera.
// A nil newCamera uses the GoCV camera; a nil devices uses DefaultDevices.
func NewSource(newCamera func(deviceID int) Camera, devices DeviceMap) *Source {
	if newCamera == nil {
		newCamera = NewCamera
	}
	if devices == nil {
		devices = DefaultDevices()
	}
	return &Source{
		newCamera: newCamera,
		devices:   devices,
		refresh:   make(chan struct{}, 1),
	}
}

// Acquire opens the camera for facing and starts decoding frames.
// It fails with ErrDeviceUnavailable when the device cannot be opened.
func (s *Source) Acquire(ctx context.Context, facing Facing) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return nil, ErrSourceBusy
	}

	deviceID, ok := s.devices[facing]
	if !ok {
		return nil, fmt.Errorf("%w: no device for facing %q", ErrDeviceUnavailable, facing)
	}

	cam := s.newCamera(deviceID)
	if err := cam.Open(); err != nil {
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		return nil, err
	}

	h := &Handle{
		facing: facing,
		camera: cam,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.handle = h

	// Drain a refresh signal left over from a previous acquisition.
	select {
	case <-s.refresh:
	default:
	}

	go s.grab(h)

	log.Printf("Camera acquired (facing: %s, device: %d)", facing, deviceID)
	return h, nil
}

// grab reads frames from the handle's camera until the handle is released.
func (s *Source) grab(h *Handle) {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		mat, err := h.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrCameraNotOpen) {
				return
			}
			select {
			case <-h.stop:
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		s.mu.Lock()
		if s.handle != h {
			s.mu.Unlock()
			mat.Close()
			return
		}
		previous := s.latest
		s.seq++
		s.latest = &Frame{Seq: s.seq, Timestamp: time.Now(), Mat: mat}
		s.mu.Unlock()

		previous.Close()

		select {
		case s.refresh <- struct{}{}:
		default:
		}
	}
}

// Refresh returns a channel that receives a value whenever a new frame has been
// decoded. Signals are coalesced: a slow reader sees at most one pending signal.
func (s *Source) Refresh() <-chan struct{} {
	return s.refresh
}

// Ready reports whether the source is acquired and has decoded at least one frame.
func (s *Source) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.latest != nil
}

// CurrentFrame returns a copy of the latest decoded frame. Successive calls
// return frames with the same Seq until the source advances. The caller owns
// the returned frame and must Close it.
func (s *Source) CurrentFrame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return nil, ErrCameraNotOpen
	}
	if s.latest == nil || s.latest.Mat == nil {
		return nil, ErrNoFrame
	}

	mat := s.latest.Mat.Clone()
	return &Frame{
		Seq:       s.latest.Seq,
		Timestamp: s.latest.Timestamp,
		Mat:       &mat,
	}, nil
}

// Release stops decoding and closes the camera held by h.
// Releasing a nil, stale, or already released handle is a no-op.
func (s *Source) Release(h *Handle) error {
	if h == nil {
		return nil
	}

	first := false
	h.once.Do(func() {
		first = true

		close(h.stop)
		<-h.done

		s.mu.Lock()
		if s.handle == h {
			s.handle = nil
			s.latest.Close()
			s.latest = nil
		}
		s.mu.Unlock()

		h.err = h.camera.Close()
		log.Printf("Camera released (facing: %s)", h.facing)
	})

	if !first {
		return nil
	}
	return h.err
}
