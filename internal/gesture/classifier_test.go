package gesture

import (
	"errors"
	"math"
	"testing"
)

func mustClassifier(t *testing.T, threshold float64) *Classifier {
	t.Helper()
	c, err := NewClassifier(threshold)
	if err != nil {
		t.Fatalf("NewClassifier(%v) error = %v", threshold, err)
	}
	return c
}

// evenSteps returns n points stepping from (x0,y0) by (dx,dy).
func evenSteps(n int, x0, y0, dx, dy float64) Trajectory {
	t := make(Trajectory, n)
	for i := range t {
		t[i] = Point{X: x0 + float64(i)*dx, Y: y0 + float64(i)*dy}
	}
	return t
}

// closedLoop samples a circle so the last point returns to the first.
func closedLoop(n int, cx, cy, r float64) Trajectory {
	t := make(Trajectory, n)
	for i := range t {
		a := 2 * math.Pi * float64(i) / float64(n-1)
		t[i] = Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return t
}

// radial places points along the 45 degree diagonal at the given origin distances.
func radial(dists ...float64) Trajectory {
	t := make(Trajectory, len(dists))
	for i, d := range dists {
		t[i] = Point{X: d * math.Sqrt2 / 2, Y: d * math.Sqrt2 / 2}
	}
	return t
}

func TestClassifier_Swipes(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	tests := []struct {
		name string
		traj Trajectory
		want Type
	}{
		{"right", evenSteps(5, 0.1, 0.5, 0.5/4, 0), TypeSwipeRight},
		{"left", evenSteps(5, 0.8, 0.5, -0.15, 0), TypeSwipeLeft},
		{"up", evenSteps(5, 0.5, 0.9, 0, -0.12), TypeSwipeUp},
		{"down", evenSteps(5, 0.5, 0.1, 0, 0.12), TypeSwipeDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.traj, nil)
			if got.GestureType != tt.want {
				t.Fatalf("GestureType = %q, want %q", got.GestureType, tt.want)
			}
			if got.Confidence < 0.85 {
				t.Errorf("Confidence = %v, want >= 0.85", got.Confidence)
			}
			if !got.IsValid {
				t.Error("IsValid = false, want true")
			}
			if got.TrajectoryLength != len(tt.traj) {
				t.Errorf("TrajectoryLength = %d, want %d", got.TrajectoryLength, len(tt.traj))
			}
		})
	}
}

func TestClassifier_SwipeConfidenceCeiling(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	got := c.Classify(evenSteps(5, 0, 0.5, 0.2, 0), nil)
	if math.Abs(got.Confidence-0.95) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.95 for a perfectly straight swipe", got.Confidence)
	}
}

func TestClassifier_WobbleLowersSwipeConfidence(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	straight := evenSteps(5, 0.1, 0.5, 0.15, 0)
	wobbly := straight.Clone()
	wobbly[1].Y += 0.04
	wobbly[2].Y -= 0.04
	wobbly[3].Y += 0.04

	s := c.Classify(straight, nil)
	w := c.Classify(wobbly, nil)
	if w.GestureType != TypeSwipeRight {
		t.Fatalf("wobbly GestureType = %q, want %q", w.GestureType, TypeSwipeRight)
	}
	if w.Confidence >= s.Confidence {
		t.Errorf("wobbly confidence %v should be below straight confidence %v", w.Confidence, s.Confidence)
	}
}

func TestClassifier_Circle(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	got := c.Classify(closedLoop(16, 0.5, 0.5, 0.3), nil)
	if got.GestureType != TypeCircle {
		t.Fatalf("GestureType = %q, want %q", got.GestureType, TypeCircle)
	}
	if got.Confidence < 0.7 {
		t.Errorf("Confidence = %v, want >= 0.7", got.Confidence)
	}
}

func TestClassifier_CircleCoverageCountsLastPoint(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	// Seven points bunched at +-85 degrees cover less than a half turn. Only the
	// last point, opposite their sum, pushes the angular spread past pi.
	var sx, sy float64
	var loop Trajectory
	for _, deg := range []float64{-85, 85, -85, 85, -85, 85, 85} {
		a := deg * math.Pi / 180
		sx, sy = sx+math.Cos(a), sy+math.Sin(a)
		loop = append(loop, Point{X: 0.5 + 0.1*math.Cos(a), Y: 0.5 + 0.1*math.Sin(a)})
	}
	last := math.Atan2(-sy, -sx)
	loop = append(loop, Point{X: 0.5 + 0.1*math.Cos(last), Y: 0.5 + 0.1*math.Sin(last)})

	got := c.Classify(loop, nil)
	if got.GestureType != TypeCircle {
		t.Fatalf("GestureType = %q, want %q", got.GestureType, TypeCircle)
	}
	if !got.IsValid {
		t.Errorf("IsValid = false with confidence %v", got.Confidence)
	}
}

func TestClassifier_SwipePrecedesCircle(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	// A half loop leaves its endpoints far apart on the x axis.
	arc := make(Trajectory, 12)
	for i := range arc {
		a := math.Pi * float64(i) / float64(len(arc)-1)
		arc[i] = Point{X: 0.5 + 0.3*math.Cos(a), Y: 0.5 + 0.3*math.Sin(a)}
	}

	got := c.Classify(arc, nil)
	if got.GestureType != TypeSwipeLeft {
		t.Errorf("GestureType = %q, want %q", got.GestureType, TypeSwipeLeft)
	}
	if got.IsValid {
		t.Errorf("IsValid = true with confidence %v for a curved path", got.Confidence)
	}
}

func TestClassifier_PinchAndSpread(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	tests := []struct {
		name     string
		traj     Trajectory
		want     Type
		wantConf float64
	}{
		{"pinch", radial(1.0, 1.0, 1.0, 0.4, 0.4, 0.4), TypePinch, 0.8},
		{"spread", radial(0.4, 0.4, 0.4, 1.0, 1.0, 1.0), TypeSpread, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.traj, nil)
			if got.GestureType != tt.want {
				t.Fatalf("GestureType = %q, want %q", got.GestureType, tt.want)
			}
			if math.Abs(got.Confidence-tt.wantConf) > 1e-4 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestClassifier_Unknown(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	got := c.Classify(evenSteps(4, 0.5, 0.5, 0.05, 0.05), nil)
	want := Result{GestureType: TypeUnknown, Confidence: 0, IsValid: false, TrajectoryLength: 4}
	if got != want {
		t.Errorf("Classify() = %+v, want %+v", got, want)
	}
}

func TestClassifier_ShortMovementIsNotSwipe(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	got := c.Classify(Trajectory{{X: 0.5, Y: 0.5}, {X: 0.55, Y: 0.5}}, nil)
	if got.GestureType == TypeSwipeRight {
		t.Errorf("GestureType = %q for a 0.05 displacement", got.GestureType)
	}
}

func TestClassifier_ResultInvariants(t *testing.T) {
	thresholds := []float64{0, 0.5, DefaultConfidenceThreshold, 0.9, 1}
	inputs := []Trajectory{
		nil,
		{{X: 0.3, Y: 0.3}},
		evenSteps(5, 0.1, 0.5, 0.15, 0),
		closedLoop(16, 0.5, 0.5, 0.3),
		radial(1, 1, 1, 0.2, 0.2, 0.2),
		radial(0.1, 0.1, 0.1, 1, 1, 1),
		evenSteps(4, 0.5, 0.5, 0.05, 0.05),
	}

	for _, th := range thresholds {
		c := mustClassifier(t, th)
		for _, in := range inputs {
			got := c.Classify(in, openPalmPose())
			if got.Confidence < 0 || got.Confidence > 1 {
				t.Errorf("Confidence = %v out of [0,1]", got.Confidence)
			}
			if got.IsValid != (got.Confidence >= th) {
				t.Errorf("threshold %v: IsValid = %v with confidence %v", th, got.IsValid, got.Confidence)
			}
			if got.TrajectoryLength != len(in) {
				t.Errorf("TrajectoryLength = %d, want %d", got.TrajectoryLength, len(in))
			}
		}
	}
}

func TestClassifier_DegenerateInputUsesPose(t *testing.T) {
	c := mustClassifier(t, DefaultConfidenceThreshold)

	tests := []struct {
		name     string
		traj     Trajectory
		pose     StaticPose
		want     Type
		wantConf float64
		valid    bool
	}{
		{"empty without pose", nil, nil, TypeNone, 0, false},
		{"single point without pose", Trajectory{{X: 0.5, Y: 0.5}}, nil, TypeNone, 0, false},
		{"empty with open palm", nil, openPalmPose(), TypePalmOpen, 0.90, true},
		{"single point with fist", Trajectory{{X: 0.5, Y: 0.5}}, fistPose(), TypeFist, 0.85, true},
		{"neither open nor closed", nil, relaxedPose(), TypeTap, 0.70, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.traj, tt.pose)
			if got.GestureType != tt.want {
				t.Fatalf("GestureType = %q, want %q", got.GestureType, tt.want)
			}
			if math.Abs(got.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.IsValid != tt.valid {
				t.Errorf("IsValid = %v, want %v", got.IsValid, tt.valid)
			}
		})
	}
}

func TestNewClassifier_InvalidThreshold(t *testing.T) {
	for _, th := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		_, err := NewClassifier(th)
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("NewClassifier(%v) error = %v, want *ConfigurationError", th, err)
		}
	}
}
