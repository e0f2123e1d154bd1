package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/sign"
)

func samplesBody(t *testing.T, hands ...detector.HandLandmarks) string {
	t.Helper()

	var req createSamplesRequest
	for _, h := range hands {
		raw, err := json.Marshal(sign.Sample{Landmarks: h.Points[:], Timestamp: 1})
		if err != nil {
			t.Fatalf("failed to marshal sample: %v", err)
		}
		req.Samples = append(req.Samples, raw)
	}

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return string(body)
}

func TestSamplesHandler_CreateTrainsSign(t *testing.T) {
	s := newTestStore(t)
	classifier := sign.NewClassifier()
	signs := NewSignHandler(s, classifier)
	handler := NewSamplesHandler(signs)
	createSign(t, s, "sign-a", "A")

	body := samplesBody(t, detector.ThumbsUpLandmarks(), detector.ThumbsUpLandmarks())
	req := httptest.NewRequest(http.MethodPost, "/api/signs/sign-a/samples", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response signResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.Samples != 2 {
		t.Errorf("expected 2 samples, got %d", response.Samples)
	}
	if !response.Trained {
		t.Error("expected sign to be trained")
	}

	landmarks, err := s.Signs().GetLandmarks("sign-a")
	if err != nil {
		t.Fatalf("GetLandmarks error: %v", err)
	}
	if len(landmarks) != detector.NumLandmarks {
		t.Errorf("expected %d landmarks, got %d", detector.NumLandmarks, len(landmarks))
	}

	if classifier.Len() != 1 {
		t.Fatalf("expected 1 template, got %d", classifier.Len())
	}
	hand := detector.ThumbsUpLandmarks()
	matches := classifier.Classify(&hand)
	if len(matches) == 0 || matches[0].Template.Label != "A" {
		t.Errorf("expected trained sign to classify as A, got %v", matches)
	}
}

func TestSamplesHandler_CreateValidation(t *testing.T) {
	s := newTestStore(t)
	handler := NewSamplesHandler(NewSignHandler(s, nil))
	createSign(t, s, "sign-a", "A")

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"missing sign", "/api/signs/nope/samples", samplesBody(t, detector.OpenPalmLandmarks()), http.StatusNotFound},
		{"invalid json", "/api/signs/sign-a/samples", `{`, http.StatusBadRequest},
		{"no samples", "/api/signs/sign-a/samples", `{"samples": []}`, http.StatusBadRequest},
		{"short sample", "/api/signs/sign-a/samples", `{"samples": [{"landmarks": [{"x": 1, "y": 1, "z": 0}]}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	samples, _ := s.Samples().GetBySignID("sign-a")
	if len(samples) != 0 {
		t.Errorf("rejected uploads should store nothing, got %d samples", len(samples))
	}
}

func TestSamplesHandler_ListAndClear(t *testing.T) {
	s := newTestStore(t)
	classifier := sign.NewClassifier()
	handler := NewSamplesHandler(NewSignHandler(s, classifier))
	createSign(t, s, "sign-a", "A")

	body := samplesBody(t, detector.OpenPalmLandmarks())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/signs/sign-a/samples", bytes.NewBufferString(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST: expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signs/sign-a/samples", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var listed listSamplesResponse
	json.NewDecoder(rec.Body).Decode(&listed)
	if len(listed.Samples) != 1 || listed.Samples[0].SignID != "sign-a" {
		t.Fatalf("expected one sample for sign-a, got %+v", listed.Samples)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/signs/sign-a/samples", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	if classifier.Len() != 0 {
		t.Errorf("expected template removed, classifier has %d", classifier.Len())
	}
	landmarks, _ := s.Signs().GetLandmarks("sign-a")
	if len(landmarks) != 0 {
		t.Errorf("expected landmarks cleared, got %d", len(landmarks))
	}
	sg, _ := s.Signs().GetByID("sign-a")
	if sg.Samples != 0 {
		t.Errorf("expected sample count reset, got %d", sg.Samples)
	}
}

func TestSamplesHandler_BadPath(t *testing.T) {
	handler := NewSamplesHandler(NewSignHandler(newTestStore(t), nil))

	for _, path := range []string{"/api/signs//samples", "/api/signs/a/b/samples", "/api/signs/a/other"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}
