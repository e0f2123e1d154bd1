package sign

import (
	"context"
	"fmt"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/store"
)

// LandmarkExtractor finds hands in a frame. detector.MediaPipeExtractor
// satisfies it.
type LandmarkExtractor interface {
	Extract(frame *gocv.Mat) ([]detector.HandLandmarks, error)
	Close() error
}

// LocalProvider is a detector.Provider that runs entirely on this machine:
// hand landmarks from the extractor are classified against trained templates.
type LocalProvider struct {
	Extractor  LandmarkExtractor
	Classifier *Classifier
}

// NewLocalProvider creates a provider over extractor and classifier.
func NewLocalProvider(extractor LandmarkExtractor, classifier *Classifier) *LocalProvider {
	return &LocalProvider{Extractor: extractor, Classifier: classifier}
}

// Authenticate accepts any key; the local backend has no account.
func (p *LocalProvider) Authenticate(ctx context.Context, key string) (detector.Session, error) {
	if p.Extractor == nil || p.Classifier == nil {
		return nil, fmt.Errorf("%w: local backend not configured", detector.ErrModelLoad)
	}
	return p, nil
}

// Load returns the local model. The model ID and version are ignored.
func (p *LocalProvider) Load(ctx context.Context, modelID string, version int) (detector.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrModelLoad, err)
	}
	if p.Classifier.Len() == 0 {
		log.Println("Warning: no trained signs, local detector will not emit labels")
	}
	return &localModel{provider: p}, nil
}

type localModel struct {
	provider *LocalProvider
}

// Detect classifies every hand in the frame and reports the best sign for each.
func (m *localModel) Detect(ctx context.Context, frame *capture.Frame) ([]detector.Detection, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: empty frame", detector.ErrDetection)
	}

	hands, err := m.provider.Extractor.Extract(frame.Mat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrDetection, err)
	}

	width, height := frame.Size()
	var dets []detector.Detection
	for i := range hands {
		matches := m.provider.Classifier.Classify(&hands[i])
		if len(matches) == 0 {
			continue
		}
		dets = append(dets, detector.Detection{
			Label:       matches[0].Template.Label,
			Confidence:  matches[0].Score,
			BoundingBox: hands[i].Bounds(width, height),
		})
	}
	detector.SortByConfidence(dets)

	return dets, nil
}

// Teardown stops the landmark extractor.
func (m *localModel) Teardown() error {
	return m.provider.Extractor.Close()
}

// LoadTemplates registers every trained sign in st with c and returns how
// many were loaded. Signs without landmarks are skipped.
func LoadTemplates(c *Classifier, st *store.Store) (int, error) {
	signs, err := st.Signs().List()
	if err != nil {
		return 0, fmt.Errorf("list signs: %w", err)
	}

	loaded := 0
	for _, sg := range signs {
		t, err := TemplateFor(st, sg)
		if err != nil {
			return loaded, err
		}
		if t == nil {
			continue
		}
		c.Add(t)
		loaded++
	}

	return loaded, nil
}

// TemplateFor builds the classifier template for a stored sign, or nil when
// the sign has not been trained.
func TemplateFor(st *store.Store, sg *store.Sign) (*Template, error) {
	landmarks, err := st.Signs().GetLandmarks(sg.ID)
	if err != nil {
		return nil, fmt.Errorf("landmarks for sign %s: %w", sg.Label, err)
	}
	if len(landmarks) == 0 {
		return nil, nil
	}

	points := make([]detector.Point3D, len(landmarks))
	for i, l := range landmarks {
		points[i] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}

	return &Template{
		ID:        sg.ID,
		Label:     sg.Label,
		Landmarks: points,
		Tolerance: sg.Tolerance,
	}, nil
}

// StoreLandmarks converts template points to store rows.
func StoreLandmarks(points []detector.Point3D) []store.Landmark {
	rows := make([]store.Landmark, len(points))
	for i, p := range points {
		rows[i] = store.Landmark{Index: i, X: p.X, Y: p.Y, Z: p.Z}
	}
	return rows
}
