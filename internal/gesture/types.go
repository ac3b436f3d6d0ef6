// Package gesture turns raw pointer trajectories and hand poses into scored gesture
// classifications and tracks recent classifications to detect compound gestures.
package gesture

import (
	"fmt"
	"math"
)

// Type identifies a discrete gesture.
type Type string

const (
	TypeSwipeRight Type = "swipe_right"
	TypeSwipeLeft  Type = "swipe_left"
	TypeSwipeUp    Type = "swipe_up"
	TypeSwipeDown  Type = "swipe_down"
	TypeCircle     Type = "circle"
	TypePinch      Type = "pinch"
	TypeSpread     Type = "spread"
	TypeTap        Type = "tap"
	TypeDoubleTap  Type = "double_tap"
	TypePalmOpen   Type = "palm_open"
	TypeFist       Type = "fist"
	TypeUnknown    Type = "unknown"
	TypeNone       Type = "none"
)

// AllTypes lists every gesture type the classifier or callers may produce.
var AllTypes = []Type{
	TypeSwipeRight, TypeSwipeLeft, TypeSwipeUp, TypeSwipeDown,
	TypeCircle, TypePinch, TypeSpread, TypeTap, TypeDoubleTap,
	TypePalmOpen, TypeFist, TypeUnknown, TypeNone,
}

// ParseType returns the Type named by s.
func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Point is a 2D sample of a pointer or hand path.
type Point struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp,omitempty"` // milliseconds, optional
}

// Trajectory is an ordered sequence of points.
type Trajectory []Point

// Clone returns a copy of t that shares no storage with it.
func (t Trajectory) Clone() Trajectory {
	if t == nil {
		return nil
	}
	out := make(Trajectory, len(t))
	copy(out, t)
	return out
}

// Landmark names a hand landmark used by static pose checks.
type Landmark string

const (
	LandmarkWrist      Landmark = "wrist"
	LandmarkIndexTip   Landmark = "index_tip"
	LandmarkIndexPIP   Landmark = "index_pip"
	LandmarkMiddleTip  Landmark = "middle_tip"
	LandmarkMiddlePIP  Landmark = "middle_pip"
	LandmarkRingTip    Landmark = "ring_tip"
	LandmarkRingPIP    Landmark = "ring_pip"
	LandmarkPinkyTip   Landmark = "pinky_tip"
	LandmarkPinkyPIP   Landmark = "pinky_pip"
	LandmarkPalmCenter Landmark = "palm_center"
)

// StaticPose is a single-frame hand snapshot keyed by landmark name.
// Coordinates use the image convention: y grows downward.
type StaticPose map[Landmark]Point

// Result is a single classification. It is a value type and is never mutated
// after the classifier returns it.
type Result struct {
	GestureType      Type    `json:"gesture_type"`
	Confidence       float64 `json:"confidence"`
	IsValid          bool    `json:"is_valid"`
	TrajectoryLength int     `json:"trajectory_length"`
}

// ConfigurationError reports an invalid smoothing, classifier or history setting.
// It is the only error the gesture package returns.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

func configErr(field string, value any, reason string) error {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// clamp01 pins v into [0,1] and maps NaN to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
