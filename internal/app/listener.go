package app

import (
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/transcript"
)

// FrameEvent describes one applied detection result.
type FrameEvent struct {
	SessionID  string               `json:"session_id"`
	Seq        uint64               `json:"seq"`
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Detections []detector.Detection `json:"detections"`
	FPS        *int                 `json:"fps"`
	Tally      transcript.Tally     `json:"tally"`
}

// TranscriptEvent reports a transcript change. Committed holds the label
// appended by the stabilizer, or is empty for manual edits.
type TranscriptEvent struct {
	Committed string `json:"committed,omitempty"`
	Text      string `json:"text"`
}

// Listener receives session notifications. Callbacks run on the goroutine
// that caused the change and must not block.
type Listener interface {
	OnState(state State)
	OnFrame(ev FrameEvent)
	OnTranscript(ev TranscriptEvent)
}
