package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing.
// Each ReadFrame waits Interval to mimic a device delivering frames at its own rate.
type MockCamera struct {
	frames   []*gocv.Mat
	index    int
	loop     bool
	openErr  error
	interval time.Duration
	opens    int
	closes   int
	mu       sync.Mutex
	running  bool
}

// NewMockCamera creates a MockCamera over frames. With loop set, playback restarts
// after the last frame instead of failing.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames:   frames,
		loop:     loop,
		interval: time.Second / DefaultFPS,
	}
}

// SetOpenError makes subsequent Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// SetInterval sets the delay between delivered frames.
func (c *MockCamera) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, c.openErr)
	}
	c.running = true
	c.index = 0
	c.opens++
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.closes++
	}
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	interval := c.interval
	c.mu.Unlock()

	if interval > 0 {
		time.Sleep(interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, fmt.Errorf("%w: recording exhausted", ErrReadFailed)
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Closes reports how many times an open camera was closed.
func (c *MockCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
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
