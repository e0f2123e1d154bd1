// Package capture provides camera acquisition and frame access using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default device settings.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrDeviceUnavailable is returned when no camera device can be opened.
	ErrDeviceUnavailable = errors.New("camera device unavailable")
	// ErrReadFailed is returned when an open device does not deliver a frame.
	ErrReadFailed = errors.New("camera read failed")
)

// Frame is a timestamped image sample from the live source.
// The holder of a Frame owns its Mat and must Close it.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Mat       *gocv.Mat
}

// Size returns the frame dimensions in pixels, or zeros for an empty frame.
func (f *Frame) Size() (width, height int) {
	if f == nil || f.Mat == nil {
		return 0, 0
	}
	return f.Mat.Cols(), f.Mat.Rows()
}

// Close releases the frame's image data. Safe to call more than once.
func (f *Frame) Close() {
	if f == nil || f.Mat == nil {
		return
	}
	f.Mat.Close()
	f.Mat = nil
}

// Camera is a video device the Source reads from.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// DeviceSettings is what a camera is asked for on open. Devices that cannot
// honor a setting fall back to their own.
type DeviceSettings struct {
	Width  int
	Height int
	FPS    int
}

// DefaultDeviceSettings requests 640x480 at 30 FPS.
func DefaultDeviceSettings() DeviceSettings {
	return DeviceSettings{Width: DefaultWidth, Height: DefaultHeight, FPS: DefaultFPS}
}

// withDefaults fills unset fields from DefaultDeviceSettings.
func (s DeviceSettings) withDefaults() DeviceSettings {
	d := DefaultDeviceSettings()
	if s.Width <= 0 || s.Height <= 0 {
		s.Width, s.Height = d.Width, d.Height
	}
	if s.FPS <= 0 {
		s.FPS = d.FPS
	}
	return s
}

// deviceCamera reads from a local video device through OpenCV. A nil vc
// means the device is closed.
type deviceCamera struct {
	deviceID int

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	settings DeviceSettings
}

// NewCamera creates a Camera for deviceID with the default settings.
func NewCamera(deviceID int) Camera {
	return &deviceCamera{deviceID: deviceID, settings: DefaultDeviceSettings()}
}

// CameraFactory returns a constructor for Source that opens devices with settings.
func CameraFactory(settings DeviceSettings) func(deviceID int) Camera {
	settings = settings.withDefaults()
	return func(deviceID int) Camera {
		return &deviceCamera{deviceID: deviceID, settings: settings}
	}
}

// Open starts capture. A missing device or denied permission is reported
// as ErrDeviceUnavailable. Opening an open camera is a no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, c.deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: device %d", ErrDeviceUnavailable, c.deviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.settings.FPS))

	c.vc = vc
	return nil
}

// Close stops capture and releases the device. Closing a closed camera is a no-op.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// ReadFrame blocks until the device delivers the next frame. The caller
// owns the returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !c.vc.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: device %d", ErrReadFailed, c.deviceID)
	}
	return &mat, nil
}

// SetFPS changes the requested frame rate. Non-positive values are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.settings.FPS = fps
	if c.vc != nil {
		c.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested frame rate.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.FPS
}

// IsOpen reports whether the device is capturing.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc != nil
}
