// Package tray provides a system tray interface for the SignScribe transcription system.
package tray

import (
	"context"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/signscribe/internal/app"
	"github.com/ayusman/signscribe/internal/speech"
)

// Controls is the part of the session controller the menu drives. *app.App implements it.
type Controls interface {
	Start(ctx context.Context) error
	Stop() error
	State() app.State
	Transcript() string
	AppendSpace()
	ClearTranscript()
}

// Speaker synthesizes the transcript. *speech.Speaker implements it.
type Speaker interface {
	Speak(ctx context.Context, text string) (*speech.Audio, error)
}

// Tray represents the system tray application. It implements app.Listener
// to keep the menu in step with the session.
type Tray struct {
	controls   Controls
	speaker    Speaker
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	state      app.State
	lastCommit string

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
	menuSpeak  *systray.MenuItem
}

var _ app.Listener = (*Tray)(nil)

// New creates a new Tray driving controls. speaker may be nil, in which case
// the Speak item is disabled.
func New(controls Controls, speaker Speaker) *Tray {
	return &Tray{
		controls: controls,
		speaker:  speaker,
		state:    controls.State(),
	}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("SignScribe")
	systray.SetTooltip("SignScribe Sign Transcription")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.state), "Start or stop transcription")
	systray.AddSeparator()

	menuSpace := systray.AddMenuItem("Add Space", "Append a space to the transcript")
	menuClear := systray.AddMenuItem("Clear", "Clear the transcript")
	t.menuSpeak = systray.AddMenuItem("Speak", "Speak the transcript")
	if t.speaker == nil {
		t.menuSpeak.Disable()
	}
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.lastCommit), "Last committed character")
	t.menuLast.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignScribe")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSpace.ClickedCh:
				t.controls.AppendSpace()
			case <-menuClear.ClickedCh:
				t.controls.ClearTranscript()
			case <-t.menuSpeak.ClickedCh:
				go t.handleSpeak()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle starts an idle session or stops a running one. Clicks during
// a transition are ignored.
func (t *Tray) handleToggle() {
	switch t.controls.State() {
	case app.Idle:
		if err := t.controls.Start(context.Background()); err != nil {
			log.Printf("Failed to start session: %v", err)
		}
	case app.Running:
		if err := t.controls.Stop(); err != nil {
			log.Printf("Failed to stop session: %v", err)
		}
	}
}

// handleSpeak synthesizes the current transcript. Playback happens in the
// browser, which fetches the latest clip.
func (t *Tray) handleSpeak() {
	if t.speaker == nil {
		return
	}
	if _, err := t.speaker.Speak(context.Background(), t.controls.Transcript()); err != nil {
		log.Printf("Failed to speak transcript: %v", err)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// OnState implements app.Listener.
func (t *Tray) OnState(state app.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	if t.menuToggle == nil {
		return
	}
	t.menuToggle.SetTitle(toggleTitle(state))
	if state == app.Starting || state == app.Stopping {
		t.menuToggle.Disable()
	} else {
		t.menuToggle.Enable()
	}
}

// OnFrame implements app.Listener.
func (t *Tray) OnFrame(app.FrameEvent) {}

// OnTranscript implements app.Listener. Manual edits leave the last commit
// shown unless the transcript was cleared.
func (t *Tray) OnTranscript(ev app.TranscriptEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case ev.Committed != "":
		t.lastCommit = ev.Committed
	case ev.Text == "":
		t.lastCommit = ""
	default:
		return
	}
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.lastCommit))
	}
}

// LastCommit returns the last committed character shown in the menu.
func (t *Tray) LastCommit() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastCommit
}

func toggleTitle(state app.State) string {
	switch state {
	case app.Running:
		return "● Stop"
	case app.Starting:
		return "◌ Starting..."
	case app.Stopping:
		return "◌ Stopping..."
	default:
		return "○ Start"
	}
}

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}
