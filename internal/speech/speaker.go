package speech

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ayusman/signscribe/internal/trace"
)

// Speaker serializes synthesis requests and keeps the most recent clip.
// A request made while another is in flight fails with ErrBusy. A successful
// request replaces the previous clip; a failed one leaves it in place.
type Speaker struct {
	gateway Gateway

	mu      sync.Mutex
	loading bool
	latest  *Audio
}

// NewSpeaker creates a Speaker over gateway. A nil gateway makes every
// request fail with ErrSynthesisUnavailable.
func NewSpeaker(gateway Gateway) *Speaker {
	return &Speaker{gateway: gateway}
}

// Speak synthesizes text.
func (s *Speaker) Speak(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no API key configured", ErrSynthesisUnavailable)
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.loading = true
	s.mu.Unlock()

	ctx, span := trace.StartSpan(ctx, trace.SpanSynthesize, attribute.Int(trace.AttrTextLength, len(text)))
	defer span.End()

	audio, err := s.gateway.Synthesize(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		trace.RecordError(span, err)
		log.Printf("Error synthesizing speech: %v", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int(trace.AttrAudioBytes, len(audio.Data)))
	s.latest = audio
	log.Printf("Synthesized %d bytes of audio for %d characters", len(audio.Data), len(text))
	return audio, nil
}

// Loading reports whether a request is in flight.
func (s *Speaker) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Latest returns the most recent successfully synthesized clip.
func (s *Speaker) Latest() (*Audio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latest != nil
}
