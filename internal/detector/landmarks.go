package detector

import "math"

// Landmark indices in the 21-point hand model used by MediaPipe. Each finger
// runs base to tip.
const (
	Wrist = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip

	NumLandmarks
)

// minHandSpan is the wrist to middle-knuckle length below which a hand is
// treated as degenerate and left unscaled.
const minHandSpan = 1e-10

// Point3D is one landmark. X and Y are image-relative, Z is depth relative to the wrist.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns p - o.
func (p Point3D) Sub(o Point3D) Point3D {
	return Point3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

// Scale returns p with every coordinate multiplied by f.
func (p Point3D) Scale(f float64) Point3D {
	return Point3D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Dist returns the Euclidean distance between p and o.
func (p Point3D) Dist(o Point3D) float64 {
	d := p.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// HandLandmarks is one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Normalize returns a copy of the hand moved so the wrist sits at the origin
// and scaled so the wrist to middle-knuckle span is 1. The result no longer
// depends on where the hand is in the frame or how close it is to the camera.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	out := &HandLandmarks{Handedness: h.Handedness, Score: h.Score}

	origin := h.Points[Wrist]
	span := h.Points[MiddleMCP].Dist(origin)
	factor := 1.0
	if span >= minHandSpan {
		factor = 1 / span
	}

	for i, p := range h.Points {
		out.Points[i] = p.Sub(origin).Scale(factor)
	}
	return out
}

// Bounds returns the pixel rectangle enclosing a hand whose points are in
// [0,1] image coordinates.
func (h *HandLandmarks) Bounds(width, height int) BoundingBox {
	if h == nil {
		return BoundingBox{}
	}

	lo := Point3D{X: math.Inf(1), Y: math.Inf(1)}
	hi := Point3D{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range h.Points {
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
	}

	w, ht := float64(width), float64(height)
	return BoundingBox{
		X:      lo.X * w,
		Y:      lo.Y * ht,
		Width:  (hi.X - lo.X) * w,
		Height: (hi.Y - lo.Y) * ht,
	}
}
