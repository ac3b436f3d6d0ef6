// Package detector provides hand landmark detection and converts landmarks into
// the points and poses consumed by the gesture package.
package detector

import (
	"math"

	"github.com/ayusman/palmpay/internal/gesture"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21

	// PalmCenter is the landmark used as the palm center for fist checks.
	PalmCenter = MiddleMCP
)

// poseLandmarks maps MediaPipe indices onto the named landmarks of a static pose.
var poseLandmarks = map[int]gesture.Landmark{
	Wrist:      gesture.LandmarkWrist,
	IndexTip:   gesture.LandmarkIndexTip,
	IndexPIP:   gesture.LandmarkIndexPIP,
	MiddleTip:  gesture.LandmarkMiddleTip,
	MiddlePIP:  gesture.LandmarkMiddlePIP,
	RingTip:    gesture.LandmarkRingTip,
	RingPIP:    gesture.LandmarkRingPIP,
	PinkyTip:   gesture.LandmarkPinkyTip,
	PinkyPIP:   gesture.LandmarkPinkyPIP,
	PalmCenter: gesture.LandmarkPalmCenter,
}

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// Coordinates are normalized to the frame, with y growing downward.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Pose returns the static pose snapshot of the hand in frame coordinates.
func (h *HandLandmarks) Pose() gesture.StaticPose {
	if h == nil {
		return nil
	}
	pose := make(gesture.StaticPose, len(poseLandmarks))
	for idx, name := range poseLandmarks {
		p := h.Points[idx]
		pose[name] = gesture.Point{X: p.X, Y: p.Y}
	}
	return pose
}

// IndexTip returns the index fingertip as a trajectory sample stamped with ts
// (milliseconds).
func (h *HandLandmarks) IndexTip(ts int64) gesture.Point {
	p := h.Points[IndexTip]
	return gesture.Point{X: p.X, Y: p.Y, Timestamp: ts}
}

// Translate returns a copy of the hand shifted by (dx, dy).
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// HandSize returns the wrist to middle MCP distance in frame units.
func (h *HandLandmarks) HandSize() float64 {
	return distance3D(h.Points[Wrist], h.Points[MiddleMCP])
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
// Returns a new HandLandmarks instance with normalized points.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := h.HandSize()
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}

// Primary returns the most confident hand, if any.
func Primary(hands []HandLandmarks) (HandLandmarks, bool) {
	if len(hands) == 0 {
		return HandLandmarks{}, false
	}
	best := 0
	for i := 1; i < len(hands); i++ {
		if hands[i].Score > hands[best].Score {
			best = i
		}
	}
	return hands[best], true
}
