// Package server provides the HTTP server for the SignScribe transcription system.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/signscribe/internal/server/api"
	"github.com/ayusman/signscribe/internal/sign"
	"github.com/ayusman/signscribe/internal/store"
)

// Session is the session controller the API drives. *app.App implements it.
type Session interface {
	api.Controller
	api.TranscriptEditor
}

// Config holds the server configuration. Routes are only registered for the
// parts that are set.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Classifier *sign.Classifier
	Session    Session
	Speaker    api.Speaker
	Frames     FrameReader
	Events     *Hub
}

// Server represents the HTTP server for the SignScribe application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time

	mu   sync.Mutex
	srv  *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Session != nil {
		s.mux.Handle("/api/session", api.NewSessionHandler(s.config.Session))

		transcriptHandler := api.NewTranscriptHandler(s.config.Session)
		s.mux.Handle("/api/transcript", transcriptHandler)
		s.mux.Handle("/api/transcript/", transcriptHandler)
	}

	if s.config.Speaker != nil {
		var transcript func() string
		if s.config.Session != nil {
			transcript = s.config.Session.Transcript
		}
		s.mux.Handle("/api/speech", api.NewSpeechHandler(s.config.Speaker, transcript))
	}

	if s.config.Store != nil {
		signHandler := api.NewSignHandler(s.config.Store, s.config.Classifier)
		samplesHandler := api.NewSamplesHandler(signHandler)

		// /api/signs/{id}/samples goes to the samples handler
		signRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			signHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/signs", signRouter)
		s.mux.Handle("/api/signs/", signRouter)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		response["state"] = s.config.Session.Status().State
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns nil
// after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
// Long-lived streams are cut off when ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if s.config.Events != nil {
		s.config.Events.Close()
	}
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return srv.Close()
	}
	return nil
}
