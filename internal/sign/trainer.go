package sign

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/signscribe/internal/detector"
)

// ErrNoSamples is returned when training is attempted without samples.
var ErrNoSamples = errors.New("no samples provided")

// Sample is one recorded pose as posted by the training client.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// Train normalizes each recorded sample and averages them into template landmarks.
func Train(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	var sum [detector.NumLandmarks]detector.Point3D
	for i, raw := range samples {
		var s Sample
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to parse sample %d: %w", i, err)
		}
		if len(s.Landmarks) != detector.NumLandmarks {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(s.Landmarks), detector.NumLandmarks)
		}

		var hand detector.HandLandmarks
		copy(hand.Points[:], s.Landmarks)
		normalized := hand.Normalize()

		for j, p := range normalized.Points {
			sum[j].X += p.X
			sum[j].Y += p.Y
			sum[j].Z += p.Z
		}
	}

	n := float64(len(samples))
	averaged := make([]detector.Point3D, detector.NumLandmarks)
	for i, p := range sum {
		averaged[i] = detector.Point3D{X: p.X / n, Y: p.Y / n, Z: p.Z / n}
	}

	return averaged, nil
}
