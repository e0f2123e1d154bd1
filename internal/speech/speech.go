// Package speech renders the transcript as audio through a synthesis service.
package speech

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSynthesisUnavailable is returned when the synthesis service fails or is not configured.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")
	// ErrBusy is returned when a synthesis request is already in progress.
	ErrBusy = errors.New("speech synthesis already in progress")
	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("nothing to speak")
)

// Audio is one synthesized clip.
type Audio struct {
	ID          string
	Text        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Gateway synthesizes text into playable audio.
type Gateway interface {
	Synthesize(ctx context.Context, text string) (*Audio, error)
}
