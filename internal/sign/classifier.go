// Package sign provides the local sign classifier: landmark templates trained
// from recorded samples and matched against live hand landmarks.
package sign

import (
	"sort"
	"sync"

	"github.com/ayusman/signscribe/internal/detector"
)

// Template is a trained sign pose.
type Template struct {
	ID        string             // Sign ID in the store
	Label     string             // Character emitted when the template matches
	Landmarks []detector.Point3D // Normalized landmarks
	Tolerance float64            // Maximum distance for a match
}

// Match is a template that lies within tolerance of the input hand.
type Match struct {
	Template *Template
	Score    float64 // 1/(1+Distance), higher is better
	Distance float64 // Summed point distance between input and template
}

// Classifier matches hand landmarks against registered templates.
// It is safe for concurrent use: the pipeline classifies while the API
// trains and removes signs.
type Classifier struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewClassifier creates an empty Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Add registers a template, replacing any template with the same ID.
func (c *Classifier) Add(t *Template) {
	if t == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.templates {
		if existing.ID == t.ID {
			c.templates[i] = t
			return
		}
	}
	c.templates = append(c.templates, t)
}

// Remove removes a template by its ID.
func (c *Classifier) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered templates.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Classify returns the templates within tolerance of hand, best match first.
func (c *Classifier) Classify(hand *detector.HandLandmarks) []Match {
	normalized := hand.Normalize()
	if normalized == nil {
		return nil
	}
	input := normalized.Points[:]

	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []Match
	for _, t := range c.templates {
		if len(t.Landmarks) == 0 {
			continue
		}

		distance := euclideanDistance(input, t.Landmarks)
		if distance > t.Tolerance {
			continue
		}
		matches = append(matches, Match{
			Template: t,
			Score:    1.0 / (1.0 + distance),
			Distance: distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// euclideanDistance sums the distances between corresponding points.
func euclideanDistance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))

	var total float64
	for i := 0; i < n; i++ {
		total += a[i].Dist(b[i])
	}

	return total
}
