package server

import (
	"fmt"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/signscribe/internal/capture"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// FrameReader exposes the latest camera frame. capture.Source implements it.
type FrameReader interface {
	CurrentFrame() (*capture.Frame, error)
}

// StreamHandler serves the live source as MJPEG. It only reads the latest
// frame, so streaming never competes with the detection loop for frames.
type StreamHandler struct {
	frames   FrameReader
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames FrameReader) *StreamHandler {
	return &StreamHandler{frames: frames, interval: streamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.frames.CurrentFrame()
		if err != nil {
			continue
		}
		if frame.Seq == lastSeq {
			frame.Close()
			continue
		}
		lastSeq = frame.Seq

		buf, err := gocv.IMEncode(".jpg", *frame.Mat)
		frame.Close()
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		_, werr := w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()
		if werr != nil {
			return
		}

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
