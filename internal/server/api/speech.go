package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ayusman/signscribe/internal/speech"
)

// Speaker synthesizes text and keeps the latest clip. *speech.Speaker implements it.
type Speaker interface {
	Speak(ctx context.Context, text string) (*speech.Audio, error)
	Latest() (*speech.Audio, bool)
}

// SpeechHandler serves /api/speech.
type SpeechHandler struct {
	speaker    Speaker
	transcript func() string
}

// NewSpeechHandler creates a SpeechHandler that speaks the text returned by transcript.
func NewSpeechHandler(s Speaker, transcript func() string) *SpeechHandler {
	return &SpeechHandler{speaker: s, transcript: transcript}
}

type speechRequest struct {
	Text string `json:"text"`
}

// ServeHTTP synthesizes on POST and replays the latest clip on GET.
// Both return the audio bytes.
func (h *SpeechHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		audio, ok := h.speaker.Latest()
		if !ok {
			writeError(w, http.StatusNotFound, "No audio available")
			return
		}
		writeAudio(w, audio)
	case http.MethodPost:
		h.speak(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// speak synthesizes the request text, or the current transcript when the
// body is empty or has no text.
func (h *SpeechHandler) speak(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	text := req.Text
	if text == "" && h.transcript != nil {
		text = h.transcript()
	}

	audio, err := h.speaker.Speak(r.Context(), text)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeAudio(w, audio)
}

func writeAudio(w http.ResponseWriter, audio *speech.Audio) {
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio.Data)))
	w.Header().Set("X-Audio-Id", audio.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}
