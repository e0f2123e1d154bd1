package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/signscribe/internal/sign"
	"github.com/ayusman/signscribe/internal/store"
)

// SamplesHandler handles recorded training samples for a sign. Each upload
// retrains the sign's template from every sample stored so far.
type SamplesHandler struct {
	signs *SignHandler
}

// NewSamplesHandler creates a new SamplesHandler sharing the store and
// classifier of signs.
func NewSamplesHandler(signs *SignHandler) *SamplesHandler {
	return &SamplesHandler{signs: signs}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/signs/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/signs/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	signID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, signID)
	case http.MethodPost:
		h.create(w, r, signID)
	case http.MethodDelete:
		h.clear(w, r, signID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/signs/{id}/samples.
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, signID string) {
	samples, err := h.signs.store.Samples().GetBySignID(signID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			SignID:      s.SignID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/signs/{id}/samples. Samples are validated before
// anything is stored.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, signID string) {
	st := h.signs.store
	if _, err := st.Signs().GetByID(signID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify sign")
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}
	if _, err := sign.Train(req.Samples); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := st.Samples().Create(signID, req.Samples); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	sg, err := h.retrain(signID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to train sign")
		return
	}

	writeJSON(w, http.StatusCreated, h.signs.toResponse(sg))
}

// clear handles DELETE /api/signs/{id}/samples and untrains the sign.
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, signID string) {
	st := h.signs.store
	sg, err := st.Signs().GetByID(signID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify sign")
		return
	}

	if err := st.Samples().DeleteBySignID(signID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	if err := st.Signs().SetLandmarks(signID, nil); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset sign")
		return
	}
	h.signs.refreshTemplate(sg)

	w.WriteHeader(http.StatusNoContent)
}

// retrain averages every stored sample of the sign into its template.
func (h *SamplesHandler) retrain(signID string) (*store.Sign, error) {
	st := h.signs.store

	samples, err := st.Samples().GetBySignID(signID)
	if err != nil {
		return nil, err
	}
	raw := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		raw[i] = s.Data
	}

	points, err := sign.Train(raw)
	if err != nil {
		return nil, err
	}
	if err := st.Signs().SetLandmarks(signID, sign.StoreLandmarks(points)); err != nil {
		return nil, err
	}

	sg, err := st.Signs().GetByID(signID)
	if err != nil {
		return nil, err
	}
	h.signs.refreshTemplate(sg)
	return sg, nil
}
