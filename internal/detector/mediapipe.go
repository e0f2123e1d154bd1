package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MediaPipeConfig holds configuration options for hand landmark extraction.
type MediaPipeConfig struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// IdleTimeout stops the Python process after this long without a frame.
	// Zero keeps it running until Close.
	IdleTimeout time.Duration
}

// DefaultMediaPipeConfig returns a MediaPipeConfig for single-signer input.
func DefaultMediaPipeConfig() MediaPipeConfig {
	return MediaPipeConfig{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

const mediaPipeScript = "mediapipe_service.py"

// MediaPipeExtractor extracts hand landmarks using a Python MediaPipe subprocess.
// Frames go out on stdin as a 4-byte big-endian length followed by JPEG bytes;
// each frame is answered with one JSON line on stdout.
type MediaPipeExtractor struct {
	config MediaPipeConfig
	script string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeExtractor locates the MediaPipe service script. The Python
// process itself is started lazily on first extraction.
func NewMediaPipeExtractor(config MediaPipeConfig) (*MediaPipeExtractor, error) {
	script := firstExisting(searchPaths(filepath.Join("scripts", mediaPipeScript)))
	if script == "" {
		return nil, fmt.Errorf("%s not found", mediaPipeScript)
	}

	return &MediaPipeExtractor{
		config: config,
		script: script,
	}, nil
}

// Extract analyzes a frame and returns detected hand landmarks with points
// normalized to [0,1] image coordinates.
func (d *MediaPipeExtractor) Extract(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	data := buf.GetBytes()

	msg := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(msg, uint32(len(data)))
	copy(msg[4:], data)
	buf.Close()

	if _, err := d.stdin.Write(msg); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := make([]HandLandmarks, 0, len(response.Hands))
	for _, h := range response.Hands {
		hands = append(hands, h.landmarks())
	}

	d.armIdleTimer()
	return hands, nil
}

// Close shuts down the Python process. A later Extract starts it again.
func (d *MediaPipeExtractor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeExtractor) ensureStarted() error {
	if d.cmd != nil {
		return nil
	}

	python := firstExisting(searchPaths(filepath.Join("venv", "bin", "python")))
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func (d *MediaPipeExtractor) shutdown() error {
	if d.cmd == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()

	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeExtractor) armIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.config.IdleTimeout <= 0 {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// A frame may have re-armed the timer while we waited for the lock.
		if d.idleTimer != t {
			return
		}
		d.shutdown()
	})
	d.idleTimer = t
}

// searchPaths lists the places rel may live: relative to the working
// directory, next to the executable, and under ~/.signscribe.
func searchPaths(rel string) []string {
	paths := []string{rel, filepath.Join("..", rel), filepath.Join("..", "..", rel)}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".signscribe", rel))
	}
	return paths
}

// firstExisting returns the absolute form of the first path that exists.
func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}

// jsonHand is one hand as reported by the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) landmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm
}
