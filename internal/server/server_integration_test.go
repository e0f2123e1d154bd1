package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/sign"
	"github.com/ayusman/signscribe/internal/store"
)

func sampleJSON(t *testing.T, hand detector.HandLandmarks) string {
	t.Helper()

	raw, err := json.Marshal(sign.Sample{Landmarks: hand.Points[:]})
	if err != nil {
		t.Fatalf("failed to marshal sample: %v", err)
	}
	return fmt.Sprintf(`{"samples": [%s]}`, raw)
}

func TestAPI_SignWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	classifier := sign.NewClassifier()
	srv := New(Config{Store: s, Classifier: classifier})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a sign
	resp, err := client.Post(ts.URL+"/api/signs", "application/json", bytes.NewBufferString(`{"label": "A"}`))
	if err != nil {
		t.Fatalf("POST /api/signs error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID      string `json:"id"`
		Label   string `json:"label"`
		Trained bool   `json:"trained"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Label != "A" || created.Trained {
		t.Fatalf("created = %+v, want untrained A", created)
	}

	// 2. Upload a training sample
	resp, err = client.Post(ts.URL+"/api/signs/"+created.ID+"/samples", "application/json",
		strings.NewReader(sampleJSON(t, detector.ThumbsUpLandmarks())))
	if err != nil {
		t.Fatalf("POST samples error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST samples status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	if classifier.Len() != 1 {
		t.Fatalf("classifier templates = %d, want 1", classifier.Len())
	}

	// 3. The sign now reports trained
	resp, _ = client.Get(ts.URL + "/api/signs/" + created.ID)
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if !created.Trained {
		t.Error("sign not trained after sample upload")
	}

	// 4. Delete the sign
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/signs/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	if classifier.Len() != 0 {
		t.Errorf("classifier templates after delete = %d, want 0", classifier.Len())
	}

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/signs/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_SessionWorkflow(t *testing.T) {
	session := &fakeSession{text: "HI"}
	ts := httptest.NewServer(New(Config{Session: session}))
	defer ts.Close()

	client := ts.Client()

	post := func(path, body string) int {
		t.Helper()
		resp, err := client.Post(ts.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s error = %v", path, err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post("/api/session", `{"action": "start"}`); code != http.StatusOK {
		t.Fatalf("start status = %d, want %d", code, http.StatusOK)
	}
	if code := post("/api/session", `{"action": "start"}`); code != http.StatusConflict {
		t.Fatalf("second start status = %d, want %d", code, http.StatusConflict)
	}
	if code := post("/api/transcript/space", ""); code != http.StatusOK {
		t.Fatalf("space status = %d, want %d", code, http.StatusOK)
	}
	if session.text != "HI " {
		t.Errorf("transcript = %q, want %q", session.text, "HI ")
	}
	if code := post("/api/session", `{"action": "stop"}`); code != http.StatusOK {
		t.Fatalf("stop status = %d, want %d", code, http.StatusOK)
	}

	resp, _ := client.Get(ts.URL + "/api/transcript")
	var transcript struct {
		Text string `json:"text"`
	}
	json.NewDecoder(resp.Body).Decode(&transcript)
	resp.Body.Close()

	if transcript.Text != "HI " {
		t.Errorf("transcript after stop = %q, want it kept", transcript.Text)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
