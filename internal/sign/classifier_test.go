package sign

import (
	"testing"

	"github.com/ayusman/signscribe/internal/detector"
)

func templateFrom(id, label string, hand detector.HandLandmarks, tolerance float64) *Template {
	normalized := hand.Normalize()
	return &Template{
		ID:        id,
		Label:     label,
		Landmarks: normalized.Points[:],
		Tolerance: tolerance,
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier()
	c.Add(templateFrom("a", "A", detector.ThumbsUpLandmarks(), 0.5))

	input := detector.ThumbsUpLandmarks()
	matches := c.Classify(&input)

	if len(matches) == 0 {
		t.Fatal("expected at least one match for identical pose")
	}
	if matches[0].Template.Label != "A" {
		t.Errorf("expected label A, got %q", matches[0].Template.Label)
	}
	if matches[0].Score < 0.9 {
		t.Errorf("expected high score (>0.9) for identical pose, got %f", matches[0].Score)
	}
	if matches[0].Distance > 0.1 {
		t.Errorf("expected low distance (<0.1) for identical pose, got %f", matches[0].Distance)
	}
}

func TestClassifier_NoMatch(t *testing.T) {
	c := NewClassifier()
	c.Add(templateFrom("a", "A", detector.ThumbsUpLandmarks(), 0.3))

	input := detector.OpenPalmLandmarks()
	if matches := c.Classify(&input); len(matches) != 0 {
		t.Errorf("open palm should not match thumbs up within 0.3, got %d matches", len(matches))
	}
}

func TestClassifier_BestFirst(t *testing.T) {
	c := NewClassifier()
	c.Add(templateFrom("b", "B", detector.OpenPalmLandmarks(), 100))
	c.Add(templateFrom("a", "A", detector.ThumbsUpLandmarks(), 100))

	input := detector.ThumbsUpLandmarks()
	matches := c.Classify(&input)

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches with wide tolerance, got %d", len(matches))
	}
	if matches[0].Template.Label != "A" {
		t.Errorf("best match = %q, want A", matches[0].Template.Label)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches should be sorted by score descending")
	}
}

func TestClassifier_AddRemove(t *testing.T) {
	c := NewClassifier()

	c.Add(&Template{ID: "1", Label: "A"})
	c.Add(&Template{ID: "2", Label: "B"})
	c.Add(nil)
	if c.Len() != 2 {
		t.Errorf("expected 2 templates, got %d", c.Len())
	}

	c.Add(&Template{ID: "1", Label: "C"})
	if c.Len() != 2 {
		t.Errorf("re-adding an ID should replace, got %d templates", c.Len())
	}

	c.Remove("1")
	if c.Len() != 1 {
		t.Errorf("expected 1 template after removal, got %d", c.Len())
	}

	c.Remove("missing")
	if c.Len() != 1 {
		t.Errorf("removing an unknown ID should be a no-op, got %d", c.Len())
	}
}

func TestClassifier_NilHand(t *testing.T) {
	c := NewClassifier()
	c.Add(templateFrom("a", "A", detector.ThumbsUpLandmarks(), 0.5))

	if matches := c.Classify(nil); matches != nil {
		t.Errorf("Classify(nil) = %v, want nil", matches)
	}
}

func TestClassifier_SkipsUntrained(t *testing.T) {
	c := NewClassifier()
	c.Add(&Template{ID: "empty", Label: "E", Tolerance: 100})

	input := detector.ThumbsUpLandmarks()
	if matches := c.Classify(&input); len(matches) != 0 {
		t.Errorf("template without landmarks should never match, got %d", len(matches))
	}
}
