package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/signscribe/internal/app"
)

// Controller starts and stops transcription sessions. *app.App implements it.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Status() app.Status
}

// SessionHandler serves /api/session.
type SessionHandler struct {
	controller Controller
}

// NewSessionHandler creates a new SessionHandler for c.
func NewSessionHandler(c Controller) *SessionHandler {
	return &SessionHandler{controller: c}
}

type sessionRequest struct {
	Action string `json:"action"`
}

// ServeHTTP returns the session status on GET and starts or stops the session on POST.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.controller.Status())
	case http.MethodPost:
		h.control(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) control(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var err error
	switch req.Action {
	case "start":
		err = h.controller.Start(r.Context())
	case "stop":
		err = h.controller.Stop()
	default:
		writeError(w, http.StatusBadRequest, "Action must be start or stop")
		return
	}

	if err != nil {
		log.Printf("Session %s failed: %v", req.Action, err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.controller.Status())
}
