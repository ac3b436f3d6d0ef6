package gesture

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultConfidenceThreshold is the minimum confidence for an actionable result.
const DefaultConfidenceThreshold = 0.75

// Detection thresholds. These are heuristic constants, not learned parameters.
const (
	swipeMinDistance   = 0.1
	swipeDominance     = 1.5
	swipeBaseConf      = 0.7
	swipeMaxConf       = 0.95
	linearityPenalty   = 10.0
	degenerateChordLen = 1e-6

	circleMinPoints      = 8
	circleMinCircularity = 0.7

	pinchMinPoints    = 4
	pinchEdgePoints   = 3
	pinchRatio        = 0.6
	spreadRatio       = 1.4
	pinchSpreadCeil   = 0.95
	pinchSpreadBase   = 0.7
	pinchRatioWeight  = 0.5
	spreadRatioWeight = 0.3

	epsilon = 1e-6
)

// Classifier scores trajectories and static poses. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	threshold float64
}

// NewClassifier returns a classifier that marks results valid at or above threshold.
func NewClassifier(threshold float64) (*Classifier, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, configErr("confidence_threshold", threshold, "must be within [0, 1]")
	}
	return &Classifier{threshold: threshold}, nil
}

// Threshold returns the configured confidence threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// detection is the outcome of one detector.
type detection struct {
	detected   bool
	kind       Type
	confidence float64
}

// Classify returns the first matching classification for t, trying swipe,
// circle and pinch/spread detection in that order. Trajectories with fewer than
// two points fall back to the static pose.
func (c *Classifier) Classify(t Trajectory, pose StaticPose) Result {
	if len(t) < 2 {
		d := classifyStatic(pose)
		return c.result(d.kind, d.confidence, len(t))
	}

	for _, detect := range []func(Trajectory) detection{detectSwipe, detectCircle, detectPinchSpread} {
		if d := detect(t); d.detected {
			return c.result(d.kind, d.confidence, len(t))
		}
	}
	return c.result(TypeUnknown, 0, len(t))
}

func (c *Classifier) result(kind Type, confidence float64, n int) Result {
	confidence = clamp01(confidence)
	return Result{
		GestureType:      kind,
		Confidence:       confidence,
		IsValid:          confidence >= c.threshold,
		TrajectoryLength: n,
	}
}

// detectSwipe looks for a dominant-axis displacement between the endpoints.
// y grows downward, so a negative dy is an upward swipe.
func detectSwipe(t Trajectory) detection {
	first, last := t[0], t[len(t)-1]
	dx, dy := last.X-first.X, last.Y-first.Y
	if math.Hypot(dx, dy) < swipeMinDistance {
		return detection{}
	}

	ax, ay := math.Abs(dx), math.Abs(dy)
	var d detection
	switch {
	case ax > ay*swipeDominance:
		d.kind = TypeSwipeLeft
		if dx > 0 {
			d.kind = TypeSwipeRight
		}
		d.confidence = math.Min(swipeMaxConf, swipeBaseConf+(ax/(ay+0.01))*0.1)
	case ay > ax*swipeDominance:
		d.kind = TypeSwipeDown
		if dy < 0 {
			d.kind = TypeSwipeUp
		}
		d.confidence = math.Min(swipeMaxConf, swipeBaseConf+(ay/(ax+0.01))*0.1)
	default:
		return detection{}
	}

	d.detected = true
	d.confidence *= linearity(t)
	return d
}

// linearity maps the mean perpendicular deviation of interior points from the
// endpoint chord into (0, 1].
func linearity(t Trajectory) float64 {
	if len(t) < 3 {
		return 1
	}
	start, end := t[0], t[len(t)-1]
	lx, ly := end.X-start.X, end.Y-start.Y
	chord := math.Hypot(lx, ly)
	if chord < degenerateChordLen {
		return 0.5
	}

	var sum float64
	for _, p := range t[1 : len(t)-1] {
		px, py := p.X-start.X, p.Y-start.Y
		k := (px*lx + py*ly) / (chord * chord)
		sum += math.Hypot(px-k*lx, py-k*ly)
	}
	avg := sum / float64(len(t)-2)
	return 1 / (1 + avg*linearityPenalty)
}

// detectCircle checks radial uniformity around the centroid and the spread of
// point angles. Angles are not unwrapped across ±π; a loop that starts and ends
// near that boundary can be over- or under-counted.
func detectCircle(t Trajectory) detection {
	if len(t) < circleMinPoints {
		return detection{}
	}

	xs := make([]float64, len(t))
	ys := make([]float64, len(t))
	for i, p := range t {
		xs[i], ys[i] = p.X, p.Y
	}
	cx, cy := stat.Mean(xs, nil), stat.Mean(ys, nil)

	radii := make([]float64, len(t))
	angles := make([]float64, len(t))
	for i := range t {
		radii[i] = math.Hypot(xs[i]-cx, ys[i]-cy)
		angles[i] = math.Atan2(ys[i]-cy, xs[i]-cx)
	}
	meanR, stdR := stat.PopMeanStdDev(radii, nil)
	circularity := 1 - math.Min(1, stdR/(meanR+epsilon))
	if circularity < circleMinCircularity {
		return detection{}
	}

	// Coverage spans all points, the last one included. Angles are not unwrapped.
	coverage := floats.Max(angles) - floats.Min(angles)
	if coverage < math.Pi {
		return detection{}
	}

	return detection{
		detected:   true,
		kind:       TypeCircle,
		confidence: (circularity + math.Min(1, coverage/(2*math.Pi))) / 2,
	}
}

// detectPinchSpread compares the mean distance from the coordinate origin of the
// first and last few points. It measures absolute position, not distance from
// the centroid.
func detectPinchSpread(t Trajectory) detection {
	if len(t) < pinchMinPoints {
		return detection{}
	}

	head := t[:min(pinchEdgePoints, len(t))]
	tail := t[max(0, len(t)-pinchEdgePoints):]
	ratio := originMean(tail) / (originMean(head) + epsilon)

	switch {
	case ratio < pinchRatio:
		return detection{
			detected:   true,
			kind:       TypePinch,
			confidence: math.Min(pinchSpreadCeil, pinchSpreadBase+(pinchRatio-ratio)*pinchRatioWeight),
		}
	case ratio > spreadRatio:
		return detection{
			detected:   true,
			kind:       TypeSpread,
			confidence: math.Min(pinchSpreadCeil, pinchSpreadBase+(ratio-spreadRatio)*spreadRatioWeight),
		}
	}
	return detection{}
}

func originMean(t Trajectory) float64 {
	var sum float64
	for _, p := range t {
		sum += math.Hypot(p.X, p.Y)
	}
	return sum / float64(len(t))
}
