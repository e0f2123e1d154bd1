package api

import (
	"net/http"
	"strings"
)

// TranscriptEditor reads and edits the live transcript. *app.App implements it.
type TranscriptEditor interface {
	Transcript() string
	AppendSpace()
	ClearTranscript()
}

// TranscriptHandler serves /api/transcript and /api/transcript/space.
type TranscriptHandler struct {
	editor TranscriptEditor
}

// NewTranscriptHandler creates a new TranscriptHandler for e.
func NewTranscriptHandler(e TranscriptEditor) *TranscriptHandler {
	return &TranscriptHandler{editor: e}
}

type transcriptResponse struct {
	Text string `json:"text"`
}

// ServeHTTP implements the http.Handler interface.
func (h *TranscriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/transcript")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
		case http.MethodDelete:
			h.editor.ClearTranscript()
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
	case "space":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.editor.AppendSpace()
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	writeJSON(w, http.StatusOK, transcriptResponse{Text: h.editor.Transcript()})
}
