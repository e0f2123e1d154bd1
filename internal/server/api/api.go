// Package api provides HTTP API handlers for the SignScribe transcription system.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/speech"
	"github.com/ayusman/signscribe/internal/store"
)

const timeFormat = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, speech.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrAlreadyRunning),
		errors.Is(err, app.ErrNotRunning),
		errors.Is(err, speech.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, capture.ErrDeviceUnavailable),
		errors.Is(err, capture.ErrSourceBusy),
		errors.Is(err, detector.ErrModelLoad),
		errors.Is(err, speech.ErrSynthesisUnavailable),
		errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with the status statusFor picks.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
