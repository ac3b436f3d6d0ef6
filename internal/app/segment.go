package app

import (
	"math"

	"github.com/ayusman/palmpay/internal/detector"
	"github.com/ayusman/palmpay/internal/gesture"
)

// Segmentation defaults.
const (
	// DefaultSegmentCapacity is the maximum number of index-tip samples in one segment.
	DefaultSegmentCapacity = 60
	// DefaultGapFrames is how many hand-less frames close a segment.
	DefaultGapFrames = 3
	// DefaultStillSpan is the path span, in normalized frame units, below which
	// a segment is treated as a held pose rather than a movement.
	DefaultStillSpan = 0.02
)

// SegmenterConfig configures a Segmenter. Zero fields take the defaults.
type SegmenterConfig struct {
	Capacity  int
	GapFrames int
	StillSpan float64
}

// Segment is one closed gesture attempt: the index-tip path and the last pose seen.
type Segment struct {
	Trajectory gesture.Trajectory
	Pose       gesture.StaticPose
	Still      bool
}

// Segmenter cuts a stream of per-frame hand observations into segments.
// A segment closes when the hand has been absent for GapFrames frames or the
// buffer reaches Capacity. It is not safe for concurrent use.
type Segmenter struct {
	cfg     SegmenterConfig
	points  gesture.Trajectory
	pose    gesture.StaticPose
	missing int
}

// NewSegmenter creates an empty Segmenter.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultSegmentCapacity
	}
	if cfg.GapFrames <= 0 {
		cfg.GapFrames = DefaultGapFrames
	}
	if cfg.StillSpan <= 0 {
		cfg.StillSpan = DefaultStillSpan
	}
	return &Segmenter{cfg: cfg, points: make(gesture.Trajectory, 0, cfg.Capacity)}
}

// Push feeds one frame observed at ts (unix ms). hand is nil when no hand was
// detected. It returns a segment when this frame closed one.
func (s *Segmenter) Push(hand *detector.HandLandmarks, ts int64) (Segment, bool) {
	if hand == nil {
		if len(s.points) == 0 {
			return Segment{}, false
		}
		s.missing++
		if s.missing >= s.cfg.GapFrames {
			return s.Flush()
		}
		return Segment{}, false
	}

	s.missing = 0
	s.points = append(s.points, hand.IndexTip(ts))
	s.pose = hand.Pose()

	if len(s.points) >= s.cfg.Capacity {
		return s.Flush()
	}
	return Segment{}, false
}

// Flush closes the current segment, if any, and resets the buffer.
func (s *Segmenter) Flush() (Segment, bool) {
	if len(s.points) == 0 {
		return Segment{}, false
	}

	seg := Segment{Pose: s.pose}
	if span(s.points) < s.cfg.StillSpan {
		seg.Trajectory = gesture.Trajectory{s.points[len(s.points)-1]}
		seg.Still = true
	} else {
		seg.Trajectory = s.points.Clone()
	}

	s.Reset()
	return seg, true
}

// Reset drops any buffered samples.
func (s *Segmenter) Reset() {
	s.points = s.points[:0]
	s.pose = nil
	s.missing = 0
}

// Len returns the number of buffered samples.
func (s *Segmenter) Len() int {
	return len(s.points)
}

// span is the diagonal of the bounding box of t.
func span(t gesture.Trajectory) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range t {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return math.Hypot(maxX-minX, maxY-minY)
}
