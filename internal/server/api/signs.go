package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/signscribe/internal/sign"
	"github.com/ayusman/signscribe/internal/store"
)

// SignHandler handles HTTP requests for sign resources. When a classifier is
// set, edits are mirrored into it so the local backend sees them immediately.
type SignHandler struct {
	store      *store.Store
	classifier *sign.Classifier
}

// NewSignHandler creates a new SignHandler. classifier may be nil.
func NewSignHandler(s *store.Store, classifier *sign.Classifier) *SignHandler {
	return &SignHandler{store: s, classifier: classifier}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/signs or /api/signs/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/signs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type signRequest struct {
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
}

type signResponse struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

func (h *SignHandler) toResponse(sg *store.Sign) signResponse {
	resp := signResponse{
		ID:        sg.ID,
		Label:     sg.Label,
		Tolerance: sg.Tolerance,
		Samples:   sg.Samples,
		CreatedAt: sg.CreatedAt.Format(timeFormat),
		UpdatedAt: sg.UpdatedAt.Format(timeFormat),
	}
	if landmarks, err := h.store.Signs().GetLandmarks(sg.ID); err == nil {
		resp.Trained = len(landmarks) > 0
	}
	return resp
}

// list handles GET /api/signs.
func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{
		Signs: make([]signResponse, 0, len(signs)),
	}
	for _, sg := range signs {
		response.Signs = append(response.Signs, h.toResponse(sg))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sg, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(sg))
}

// create handles POST /api/signs.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "Label is required")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}

	if _, err := h.store.Signs().GetByLabel(label); err == nil {
		writeError(w, http.StatusConflict, "Sign already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to check sign")
		return
	}

	sg := &store.Sign{
		ID:        uuid.New().String(),
		Label:     label,
		Tolerance: req.Tolerance,
	}
	if err := h.store.Signs().Create(sg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(sg))
}

// update handles PUT /api/signs/{id}.
func (h *SignHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	sg, err := h.store.Signs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if label := strings.TrimSpace(req.Label); label != "" && label != sg.Label {
		if other, err := h.store.Signs().GetByLabel(label); err == nil && other.ID != sg.ID {
			writeError(w, http.StatusConflict, "Sign already exists")
			return
		}
		sg.Label = label
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}
	if req.Tolerance > 0 {
		sg.Tolerance = req.Tolerance
	}

	if err := h.store.Signs().Update(sg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update sign")
		return
	}
	h.refreshTemplate(sg)

	writeJSON(w, http.StatusOK, h.toResponse(sg))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Signs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}
	if h.classifier != nil {
		h.classifier.Remove(id)
	}

	w.WriteHeader(http.StatusNoContent)
}

// refreshTemplate reloads the classifier template for sg after an edit.
func (h *SignHandler) refreshTemplate(sg *store.Sign) {
	if h.classifier == nil {
		return
	}
	t, err := sign.TemplateFor(h.store, sg)
	if err != nil {
		log.Printf("Error reloading template for %s: %v", sg.Label, err)
		return
	}
	if t == nil {
		h.classifier.Remove(sg.ID)
		return
	}
	h.classifier.Add(t)
}
