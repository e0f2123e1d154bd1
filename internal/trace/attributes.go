package trace

import "go.opentelemetry.io/otel/attribute"

// Span names.
const (
	SpanDetect     = "detector.detect"
	SpanSynthesize = "speech.synthesize"
)

// Attribute keys.
const (
	AttrSessionID      = "session.id"
	AttrFrameSeq       = "frame.seq"
	AttrDetectionCount = "detection.count"
	AttrTopLabel       = "detection.top_label"
	AttrTopConfidence  = "detection.top_confidence"
	AttrTextLength     = "speech.text_length"
	AttrAudioBytes     = "speech.audio_bytes"
)

// FrameAttributes identifies the frame a detection span ran on.
func FrameAttributes(sessionID string, seq uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
		attribute.Int64(AttrFrameSeq, int64(seq)),
	}
}

// DetectionAttributes summarizes a detection result.
func DetectionAttributes(count int, topLabel string, topConfidence float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(AttrDetectionCount, count)}
	if count > 0 {
		attrs = append(attrs,
			attribute.String(AttrTopLabel, topLabel),
			attribute.Float64(AttrTopConfidence, topConfidence),
		)
	}
	return attrs
}
