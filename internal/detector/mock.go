package detector

import (
	"context"
	"sync"

	"github.com/ayusman/signscribe/internal/capture"
)

// Result is one scripted outcome of MockModel.Detect.
type Result struct {
	Detections []Detection
	Err        error
}

// MockModel is a test implementation of the Model interface.
// It returns scripted results in order and repeats the last one when the
// script runs out.
type MockModel struct {
	mu          sync.Mutex
	script      []Result
	calls       int
	inFlight    int
	maxInFlight int
	block       chan struct{}
	teardownErr error
	teardowns   int
}

// NewMockModel creates a MockModel that returns results in order.
func NewMockModel(results ...Result) *MockModel {
	return &MockModel{script: results}
}

// SetResults replaces the scripted results and restarts the script.
func (m *MockModel) SetResults(results ...Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = results
	m.calls = 0
}

// SetTeardownError sets the error returned by Teardown.
func (m *MockModel) SetTeardownError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownErr = err
}

// Block makes Detect wait until the returned function is called or the
// context is cancelled.
func (m *MockModel) Block() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.block == ch {
				m.block = nil
			}
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Detect returns the next scripted result.
func (m *MockModel) Detect(ctx context.Context, frame *capture.Frame) ([]Detection, error) {
	m.mu.Lock()
	var r Result
	switch {
	case m.calls < len(m.script):
		r = m.script[m.calls]
	case len(m.script) > 0:
		r = m.script[len(m.script)-1]
	}
	m.calls++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	block := m.block
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if r.Err != nil {
		return nil, r.Err
	}
	dets := make([]Detection, len(r.Detections))
	copy(dets, r.Detections)
	return dets, nil
}

// Teardown records the call and returns the configured error.
func (m *MockModel) Teardown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns++
	return m.teardownErr
}

// Calls returns how many times Detect has been called.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MaxInFlight returns the largest number of concurrent Detect calls observed.
func (m *MockModel) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// Teardowns returns how many times Teardown has been called.
func (m *MockModel) Teardowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardowns
}

// MockProvider is a test implementation of Provider and Session that hands
// out a fixed model.
type MockProvider struct {
	Model   Model
	AuthErr error
	LoadErr error
}

// Authenticate returns the provider itself as the session.
func (p *MockProvider) Authenticate(ctx context.Context, key string) (Session, error) {
	if p.AuthErr != nil {
		return nil, p.AuthErr
	}
	return p, nil
}

// Load returns the configured model.
func (p *MockProvider) Load(ctx context.Context, modelID string, version int) (Model, error) {
	if p.LoadErr != nil {
		return nil, p.LoadErr
	}
	return p.Model, nil
}

// ThumbsUpLandmarks returns a preset HandLandmarks representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled.
func ThumbsUpLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at origin
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled (knuckles close together, tip near palm)
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	landmarks.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	landmarks.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	landmarks.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	// Middle finger curled
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	landmarks.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	// Ring finger curled
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	landmarks.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	landmarks.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	// Pinky finger curled
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	landmarks.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return landmarks
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm gesture.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Wrist at base
	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
