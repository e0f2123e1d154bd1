package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway answers with scripted outcomes and can hold a request open.
type fakeGateway struct {
	mu      sync.Mutex
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGateway) Synthesize(ctx context.Context, text string) (*Audio, error) {
	g.mu.Lock()
	g.calls++
	err := g.err
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &Audio{ID: fmt.Sprint(g.calls), Text: text, Data: []byte(text)}, nil
}

func TestSpeaker_Speak(t *testing.T) {
	s := NewSpeaker(&fakeGateway{})

	_, ok := s.Latest()
	assert.False(t, ok)

	audio, err := s.Speak(context.Background(), "  HELLO ")
	require.NoError(t, err)
	assert.Equal(t, "HELLO", audio.Text)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Same(t, audio, latest)

	second, err := s.Speak(context.Background(), "WORLD")
	require.NoError(t, err)
	latest, _ = s.Latest()
	assert.Same(t, second, latest, "a successful result replaces the previous clip")
}

func TestSpeaker_EmptyText(t *testing.T) {
	g := &fakeGateway{}
	s := NewSpeaker(g)

	_, err := s.Speak(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, g.calls)
}

func TestSpeaker_NotConfigured(t *testing.T) {
	s := NewSpeaker(nil)

	_, err := s.Speak(context.Background(), "HI")
	assert.ErrorIs(t, err, ErrSynthesisUnavailable)
}

func TestSpeaker_FailureKeepsPreviousAudio(t *testing.T) {
	g := &fakeGateway{}
	s := NewSpeaker(g)

	first, err := s.Speak(context.Background(), "A")
	require.NoError(t, err)

	g.mu.Lock()
	g.err = fmt.Errorf("%w: status 500", ErrSynthesisUnavailable)
	g.mu.Unlock()

	_, err = s.Speak(context.Background(), "B")
	assert.ErrorIs(t, err, ErrSynthesisUnavailable)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Same(t, first, latest)
	assert.False(t, s.Loading(), "loading flag clears after failure")
}

func TestSpeaker_Busy(t *testing.T) {
	release := make(chan struct{})
	g := &fakeGateway{entered: make(chan struct{}), release: release}
	s := NewSpeaker(g)

	done := make(chan error, 1)
	go func() {
		_, err := s.Speak(context.Background(), "FIRST")
		done <- err
	}()
	<-g.entered
	assert.True(t, s.Loading())

	_, err := s.Speak(context.Background(), "SECOND")
	assert.True(t, errors.Is(err, ErrBusy), "overlapping request should be rejected, got %v", err)

	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first request did not finish")
	}
	assert.False(t, s.Loading())
}
