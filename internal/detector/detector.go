// Package detector defines the sign detection contract and its backends.
package detector

import (
	"context"
	"errors"
	"sort"

	"github.com/ayusman/signscribe/internal/capture"
)

var (
	// ErrModelLoad is returned when authentication or model loading fails.
	ErrModelLoad = errors.New("model load failure")
	// ErrDetection marks a single-frame inference failure. It never ends a session.
	ErrDetection = errors.New("detection failed")
)

// BoundingBox is a detection rectangle in frame pixels, anchored at the top-left corner.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one labeled result for one frame.
type Detection struct {
	Label       string      `json:"label"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bbox"`
	Color       string      `json:"color,omitempty"`
}

// Model runs inference on frames.
type Model interface {
	// Detect analyzes a frame and returns zero or more detections.
	// Implementations return detections ordered by descending confidence.
	Detect(ctx context.Context, frame *capture.Frame) ([]Detection, error)
}

// Teardowner is implemented by models that hold resources beyond their own lifetime.
type Teardowner interface {
	Teardown() error
}

// Session is an authenticated connection to a detection backend.
type Session interface {
	Load(ctx context.Context, modelID string, version int) (Model, error)
}

// Provider authenticates against a detection backend.
type Provider interface {
	Authenticate(ctx context.Context, key string) (Session, error)
}

// Config identifies the model to load.
type Config struct {
	Key     string
	ModelID string
	Version int
}

// Load authenticates with p and loads the configured model.
func Load(ctx context.Context, p Provider, cfg Config) (Model, error) {
	sess, err := p.Authenticate(ctx, cfg.Key)
	if err != nil {
		return nil, err
	}
	return sess.Load(ctx, cfg.ModelID, cfg.Version)
}

// Teardown releases m if it exposes a teardown hook.
func Teardown(m Model) error {
	if t, ok := m.(Teardowner); ok {
		return t.Teardown()
	}
	return nil
}

// SortByConfidence orders detections by descending confidence, keeping the
// backend's order among equal confidences.
func SortByConfidence(dets []Detection) {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})
}

// Top returns the highest-confidence detection.
func Top(dets []Detection) (Detection, bool) {
	if len(dets) == 0 {
		return Detection{}, false
	}
	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}
