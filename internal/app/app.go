// Package app coordinates a sign transcription session: camera acquisition,
// model loading, the detection loop and the transcript it feeds.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/transcript"
)

var (
	// ErrAlreadyRunning is returned by Start outside the Idle state.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrNotRunning is returned by Stop while a session is starting or stopping.
	ErrNotRunning = errors.New("session not running")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("app closed")
)

// FrameSource is the camera side of a session. capture.Source implements it.
type FrameSource interface {
	Acquire(ctx context.Context, facing capture.Facing) (*capture.Handle, error)
	Release(h *capture.Handle) error
	Ready() bool
	Refresh() <-chan struct{}
	CurrentFrame() (*capture.Frame, error)
}

// Config holds configuration options for the application.
type Config struct {
	Source   FrameSource
	Provider detector.Provider
	Model    detector.Config
	Facing   capture.Facing

	// Threshold and CommitRun tune the stabilizer; zero values use the defaults.
	Threshold float64
	CommitRun int
}

// session holds everything that lives from one Start to the matching Stop.
type session struct {
	id        string
	startedAt time.Time
	handle    *capture.Handle
	model     detector.Model

	cancel context.CancelFunc
	done   chan struct{}

	// Guarded by App.mu.
	stabilizer *transcript.Stabilizer
	fps        *FPSWindow
	frames     uint64
}

// App is the session controller. Start and Stop drive the
// Idle -> Starting -> Running -> Stopping -> Idle cycle.
type App struct {
	config     Config
	transcript *transcript.Buffer

	mu         sync.Mutex
	state      State
	sess       *session
	lastCommit string
	closed     bool
	active     sync.WaitGroup
	listeners  []Listener
}

// New creates an idle App with an empty transcript.
func New(config Config) *App {
	if config.Facing == "" {
		config.Facing = capture.FacingEnvironment
	}
	return &App{
		config:     config,
		transcript: transcript.NewBuffer(),
	}
}

// AddListener registers l for state, frame and transcript notifications.
func (a *App) AddListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Start acquires the camera, loads the model and starts the detection loop.
// It fails with ErrAlreadyRunning unless the app is Idle. On failure any
// resource acquired so far is released and the app returns to Idle.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.state != Idle {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.state = Starting
	a.active.Add(1)
	a.mu.Unlock()
	a.notifyState(Starting)

	handle, err := a.config.Source.Acquire(ctx, a.config.Facing)
	if err != nil {
		a.finishStop()
		return fmt.Errorf("acquire camera: %w", err)
	}

	model, err := detector.Load(ctx, a.config.Provider, a.config.Model)
	if err != nil {
		a.releaseSource(handle)
		a.finishStop()
		return fmt.Errorf("load model: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:         uuid.New().String(),
		startedAt:  time.Now(),
		handle:     handle,
		model:      model,
		cancel:     cancel,
		done:       make(chan struct{}),
		stabilizer: a.newStabilizer(),
		fps:        NewFPSWindow(FPSWindowSize),
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		close(sess.done)
		a.teardown(sess)
		a.finishStop()
		return ErrClosed
	}
	a.transcript.Clear()
	a.lastCommit = ""
	a.sess = sess
	a.state = Running
	a.mu.Unlock()

	go a.runPipeline(runCtx, sess)

	log.Printf("Session %s started (facing: %s)", sess.id, a.config.Facing)
	a.notifyState(Running)
	a.notifyTranscript(TranscriptEvent{})
	return nil
}

// Stop cancels the detection loop, releases the camera and tears down the
// model. Stopping an idle app is a no-op; stopping while a start or stop is
// in progress returns ErrNotRunning.
func (a *App) Stop() error {
	a.mu.Lock()
	switch a.state {
	case Idle:
		a.mu.Unlock()
		return nil
	case Starting, Stopping:
		a.mu.Unlock()
		return ErrNotRunning
	}
	sess := a.sess
	a.sess = nil
	a.state = Stopping
	sess.cancel()
	a.mu.Unlock()
	a.notifyState(Stopping)

	a.teardown(sess)
	a.finishStop()

	log.Printf("Session %s stopped after %d frames", sess.id, sess.frames)
	return nil
}

// Close stops any session and prevents new ones. It waits for a start or
// stop in progress to finish, so the camera is released when Close returns.
func (a *App) Close() error {
	a.mu.Lock()
	a.closed = true
	running := a.state == Running
	a.mu.Unlock()

	var err error
	if running {
		err = a.Stop()
		if errors.Is(err, ErrNotRunning) {
			err = nil
		}
	}

	a.active.Wait()
	return err
}

// teardown waits for the loop to exit, then releases the camera and the model.
// Failures are logged, never returned.
func (a *App) teardown(sess *session) {
	<-sess.done

	a.releaseSource(sess.handle)

	if err := detector.Teardown(sess.model); err != nil {
		log.Printf("Error tearing down model: %v", err)
	}

	a.mu.Lock()
	sess.stabilizer.Reset()
	sess.fps.Reset()
	a.mu.Unlock()
}

func (a *App) releaseSource(h *capture.Handle) {
	if err := a.config.Source.Release(h); err != nil {
		log.Printf("Error releasing camera: %v", err)
	}
}

// finishStop returns the app to Idle.
func (a *App) finishStop() {
	a.mu.Lock()
	a.state = Idle
	a.mu.Unlock()
	a.notifyState(Idle)
	a.active.Done()
}

func (a *App) newStabilizer() *transcript.Stabilizer {
	s := transcript.NewStabilizer()
	if a.config.Threshold > 0 {
		s.Threshold = a.config.Threshold
	}
	if a.config.CommitRun > 0 {
		s.CommitRun = a.config.CommitRun
	}
	return s
}

// State returns the current lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Status is a snapshot of the app for display.
type Status struct {
	State      State            `json:"state"`
	SessionID  string           `json:"session_id,omitempty"`
	Facing     capture.Facing   `json:"facing"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	Frames     uint64           `json:"frames"`
	FPS        *int             `json:"fps"`
	Tally      transcript.Tally `json:"tally"`
	Transcript string           `json:"transcript"`
	LastCommit string           `json:"last_commit,omitempty"`
}

// Status returns a snapshot of the current state. FPS is nil until the
// running session has recorded at least one interval.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{
		State:      a.state,
		Facing:     a.config.Facing,
		Transcript: a.transcript.Read(),
		LastCommit: a.lastCommit,
	}
	if sess := a.sess; sess != nil {
		started := sess.startedAt
		st.SessionID = sess.id
		st.StartedAt = &started
		st.Frames = sess.frames
		st.FPS = fpsValue(sess.fps)
		st.Tally = sess.stabilizer.Tally()
	}
	return st
}

// Transcript returns the current transcript text.
func (a *App) Transcript() string {
	return a.transcript.Read()
}

// AppendSpace adds one space to the transcript. It is allowed in any state
// and does not touch the vote tally.
func (a *App) AppendSpace() {
	a.transcript.AppendSpace()
	a.notifyTranscript(TranscriptEvent{})
}

// ClearTranscript empties the transcript.
func (a *App) ClearTranscript() {
	a.transcript.Clear()
	a.mu.Lock()
	a.lastCommit = ""
	a.mu.Unlock()
	a.notifyTranscript(TranscriptEvent{})
}

func (a *App) snapshotListeners() []Listener {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Listener(nil), a.listeners...)
}

func (a *App) notifyState(s State) {
	for _, l := range a.snapshotListeners() {
		l.OnState(s)
	}
}

func (a *App) notifyTranscript(ev TranscriptEvent) {
	ev.Text = a.transcript.Read()
	for _, l := range a.snapshotListeners() {
		l.OnTranscript(ev)
	}
}

func (a *App) notifyFrame(ev FrameEvent) {
	for _, l := range a.snapshotListeners() {
		l.OnFrame(ev)
	}
}

func fpsValue(w *FPSWindow) *int {
	fps, ok := w.FPS()
	if !ok {
		return nil
	}
	return &fps
}
