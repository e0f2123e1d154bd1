package app

import (
	"math"
	"time"
)

// FPSWindowSize is the number of inter-detection intervals averaged for FPS.
const FPSWindowSize = 30

// FPSWindow is a fixed-capacity ring of the most recent inter-detection
// intervals. Pushing into a full window evicts the oldest interval.
type FPSWindow struct {
	samples []time.Duration
	next    int
	full    bool
	sum     time.Duration
	last    time.Time
}

// NewFPSWindow creates a window holding up to size intervals.
func NewFPSWindow(size int) *FPSWindow {
	if size <= 0 {
		size = FPSWindowSize
	}
	return &FPSWindow{samples: make([]time.Duration, size)}
}

// Tick records a detection completed at now. The first tick only sets the
// reference time.
func (w *FPSWindow) Tick(now time.Time) {
	if !w.last.IsZero() {
		w.Push(now.Sub(w.last))
	}
	w.last = now
}

// Push adds one interval.
func (w *FPSWindow) Push(d time.Duration) {
	if w.full {
		w.sum -= w.samples[w.next]
	}
	w.samples[w.next] = d
	w.sum += d

	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of intervals held.
func (w *FPSWindow) Len() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// FPS returns the rolling rate rounded to an integer. ok is false until at
// least one interval has been recorded.
func (w *FPSWindow) FPS() (fps int, ok bool) {
	n := w.Len()
	if n == 0 || w.sum <= 0 {
		return 0, false
	}
	return int(math.Round(float64(n) / w.sum.Seconds())), true
}

// Reset discards all intervals and the reference time.
func (w *FPSWindow) Reset() {
	clear(w.samples)
	w.next = 0
	w.full = false
	w.sum = 0
	w.last = time.Time{}
}
