package transcript

import "github.com/ayusman/signscribe/internal/detector"

// Default stabilization parameters.
const (
	DefaultThreshold = 0.7
	DefaultCommitRun = 4
)

// Tally is the consecutive-frame vote for the currently leading label.
type Tally struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stabilizer debounces the raw detection stream. A label is committed once it
// has been the top detection for CommitRun consecutive frames at or above
// Threshold. Frames with no detection, or a top detection below Threshold,
// leave the tally untouched.
//
// A Stabilizer belongs to one session and is not safe for concurrent use.
type Stabilizer struct {
	Threshold float64
	CommitRun int

	tally Tally
}

// NewStabilizer creates a Stabilizer with the default threshold and run length.
func NewStabilizer() *Stabilizer {
	return &Stabilizer{
		Threshold: DefaultThreshold,
		CommitRun: DefaultCommitRun,
	}
}

// Observe feeds one frame's detections into the tally. It returns the
// committed label and true when the frame completes a run; the tally is then
// empty again.
func (s *Stabilizer) Observe(dets []detector.Detection) (string, bool) {
	top, ok := detector.Top(dets)
	if !ok || top.Confidence < s.Threshold {
		return "", false
	}

	if top.Label == s.tally.Label {
		s.tally.Count++
	} else {
		s.tally = Tally{Label: top.Label, Count: 1}
	}

	if s.tally.Count < s.CommitRun {
		return "", false
	}

	committed := s.tally.Label
	s.tally = Tally{}
	return committed, true
}

// Tally returns the current vote state.
func (s *Stabilizer) Tally() Tally {
	return s.tally
}

// Reset clears the tally.
func (s *Stabilizer) Reset() {
	s.tally = Tally{}
}
