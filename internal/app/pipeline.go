package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/signscribe/internal/capture"
	"github.com/ayusman/signscribe/internal/detector"
	"github.com/ayusman/signscribe/internal/trace"
)

// runPipeline is the detection loop for one session.
//
// Each tick is driven by the source's refresh signal, so the loop runs at the
// camera's frame rate and idles while no new frame arrives. Detection runs
// synchronously inside the loop, which keeps at most one call in flight;
// frames decoded meanwhile are coalesced into the next tick. A failed
// detection is logged and the loop carries on.
func (a *App) runPipeline(ctx context.Context, sess *session) {
	defer close(sess.done)

	src := a.config.Source
	log.Println("Detection pipeline started")
	defer log.Println("Detection pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-src.Refresh():
		}

		if ctx.Err() != nil {
			return
		}
		if !src.Ready() {
			continue
		}

		frame, err := src.CurrentFrame()
		if err != nil {
			if !errors.Is(err, capture.ErrNoFrame) {
				log.Printf("Error reading frame: %v", err)
			}
			continue
		}

		dets, err := a.detect(ctx, sess, frame)
		width, height := frame.Size()
		seq := frame.Seq
		frame.Close()

		if ctx.Err() != nil {
			// Stopped while detecting; the result belongs to a dead session.
			return
		}
		if err != nil {
			log.Printf("Error detecting signs: %v", err)
			continue
		}

		a.apply(sess, seq, width, height, dets, time.Now())
	}
}

// detect runs the model on frame inside a trace span.
func (a *App) detect(ctx context.Context, sess *session, frame *capture.Frame) ([]detector.Detection, error) {
	ctx, span := trace.StartSpan(ctx, trace.SpanDetect, trace.FrameAttributes(sess.id, frame.Seq)...)
	defer span.End()

	dets, err := sess.model.Detect(ctx, frame)
	if err != nil {
		trace.RecordError(span, err)
		return nil, err
	}

	top, _ := detector.Top(dets)
	span.SetAttributes(trace.DetectionAttributes(len(dets), top.Label, top.Confidence)...)
	return dets, nil
}

// apply feeds one detection result into the session's stabilizer and the
// transcript. Results for a session that is no longer current are dropped.
// It reports whether the result was applied.
func (a *App) apply(sess *session, seq uint64, width, height int, dets []detector.Detection, now time.Time) bool {
	a.mu.Lock()
	if a.sess != sess || a.state != Running {
		a.mu.Unlock()
		return false
	}

	sess.frames++
	sess.fps.Tick(now)

	committed, ok := sess.stabilizer.Observe(dets)
	if ok {
		a.transcript.Append(committed)
		a.lastCommit = committed
	}

	ev := FrameEvent{
		SessionID:  sess.id,
		Seq:        seq,
		Width:      width,
		Height:     height,
		Detections: dets,
		FPS:        fpsValue(sess.fps),
		Tally:      sess.stabilizer.Tally(),
	}
	a.mu.Unlock()

	if ok {
		log.Printf("Committed %q", committed)
		a.notifyTranscript(TranscriptEvent{Committed: committed})
	}
	a.notifyFrame(ev)
	return true
}
