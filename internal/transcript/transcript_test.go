package transcript

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/signscribe/internal/detector"
)

func det(label string, confidence float64) []detector.Detection {
	return []detector.Detection{{Label: label, Confidence: confidence}}
}

// feed runs frames through a fresh stabilizer into a buffer.
func feed(frames ...[]detector.Detection) (*Stabilizer, *Buffer) {
	s := NewStabilizer()
	b := NewBuffer()
	for _, f := range frames {
		if label, ok := s.Observe(f); ok {
			b.Append(label)
		}
	}
	return s, b
}

func repeat(frame []detector.Detection, n int) [][]detector.Detection {
	frames := make([][]detector.Detection, n)
	for i := range frames {
		frames[i] = frame
	}
	return frames
}

func TestStabilizer_CommitsAfterRun(t *testing.T) {
	s, b := feed(repeat(det("A", 0.9), 4)...)

	assert.Equal(t, "A", b.Read())
	assert.Equal(t, Tally{}, s.Tally(), "tally should reset after commit")
}

func TestStabilizer_OneCommitPerRun(t *testing.T) {
	tests := []struct {
		frames int
		want   string
	}{
		{frames: 3, want: ""},
		{frames: 4, want: "A"},
		{frames: 7, want: "A"},
		{frames: 8, want: "AA"},
		{frames: 12, want: "AAA"},
	}

	for _, tt := range tests {
		_, b := feed(repeat(det("A", 0.9), tt.frames)...)
		assert.Equal(t, tt.want, b.Read(), "%d frames", tt.frames)
	}
}

func TestStabilizer_LabelChangeRestartsTally(t *testing.T) {
	s := NewStabilizer()
	for _, f := range [][]detector.Detection{det("A", 0.9), det("A", 0.9), det("B", 0.9)} {
		_, ok := s.Observe(f)
		require.False(t, ok)
	}
	assert.Equal(t, Tally{Label: "B", Count: 1}, s.Tally())
}

func TestStabilizer_PartialRunNeverCommits(t *testing.T) {
	frames := append([][]detector.Detection{det("A", 0.9), det("A", 0.9)}, repeat(det("B", 0.9), 4)...)
	_, b := feed(frames...)

	assert.Equal(t, "B", b.Read())
}

func TestStabilizer_LowConfidenceIgnored(t *testing.T) {
	s := NewStabilizer()
	s.Observe(det("A", 0.9))
	s.Observe(det("A", 0.9))

	s.Observe(det("A", 0.69))
	assert.Equal(t, Tally{Label: "A", Count: 2}, s.Tally(), "same label below threshold must not advance")

	s.Observe(det("B", 0.5))
	assert.Equal(t, Tally{Label: "A", Count: 2}, s.Tally(), "other label below threshold must not reset")

	s.Observe(nil)
	assert.Equal(t, Tally{Label: "A", Count: 2}, s.Tally(), "empty frame is a no-op")

	s.Observe(det("A", 0.7))
	label, ok := s.Observe(det("A", 1.0))
	assert.True(t, ok, "threshold is inclusive")
	assert.Equal(t, "A", label)
}

func TestStabilizer_UsesHighestConfidence(t *testing.T) {
	frame := []detector.Detection{
		{Label: "B", Confidence: 0.75},
		{Label: "A", Confidence: 0.95},
	}
	_, b := feed(repeat(frame, 4)...)

	assert.Equal(t, "A", b.Read())
}

func TestStabilizer_Reset(t *testing.T) {
	s := NewStabilizer()
	s.Observe(det("A", 0.9))
	s.Observe(det("A", 0.9))
	s.Observe(det("A", 0.9))
	s.Reset()

	_, ok := s.Observe(det("A", 0.9))
	assert.False(t, ok, "reset tally must start a new run")
	assert.Equal(t, 1, s.Tally().Count)
}

func TestBuffer(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, "", b.Read())

	b.Append("H")
	b.Append("I")
	b.AppendSpace()
	b.Append("Y")
	assert.Equal(t, "HI Y", b.Read())
	assert.Equal(t, 4, b.Len())

	b.Clear()
	assert.Equal(t, "", b.Read())

	b.AppendSpace()
	assert.Equal(t, " ", b.Read())
}

func TestAppendSpaceKeepsTally(t *testing.T) {
	s := NewStabilizer()
	b := NewBuffer()

	for i := 0; i < 2; i++ {
		s.Observe(det("C", 0.9))
	}
	b.AppendSpace()
	for i := 0; i < 2; i++ {
		if label, ok := s.Observe(det("C", 0.9)); ok {
			b.Append(label)
		}
	}

	assert.Equal(t, " C", b.Read())
}

func TestBuffer_Concurrent(t *testing.T) {
	b := NewBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Append("x")
		}()
		go func() {
			defer wg.Done()
			_ = b.Read()
		}()
	}
	wg.Wait()

	assert.Equal(t, strings.Repeat("x", 50), b.Read())
}
