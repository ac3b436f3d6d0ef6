package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// blankFrame returns a black 320x240 BGR frame.
func blankFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

// handFrame returns a black frame with a filled palm-sized square at (x, y).
func handFrame(t *testing.T, x, y int) gocv.Mat {
	t.Helper()
	m := blankFrame(t)
	gocv.Rectangle(&m, image.Rect(x, y, x+80, y+80), color.RGBA{R: 255, G: 255, B: 255, A: 0}, -1)
	return m
}

func TestMotionDetector_Threshold(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"explicit", 5, 5},
		{"fractional", 0.5, 0.5},
		{"zero uses default", 0, DefaultMotionThreshold},
		{"negative uses default", -2, DefaultMotionThreshold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.in)
			defer md.Close()
			if got := md.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %v, want %v", got, tt.want)
			}
		})
	}

	md := NewMotionDetector(2)
	defer md.Close()
	md.SetThreshold(-1)
	md.SetThreshold(0)
	if md.Threshold() != 2 {
		t.Errorf("non-positive SetThreshold should be ignored, got %v", md.Threshold())
	}
	md.SetThreshold(3.5)
	if md.Threshold() != 3.5 {
		t.Errorf("Threshold() = %v, want 3.5", md.Threshold())
	}
}

func TestMotionDetector_EmptyFrames(t *testing.T) {
	md := NewMotionDetector(1)
	defer md.Close()

	if moved, pct := md.Detect(nil); moved || pct != 0 {
		t.Errorf("nil frame = %v, %v", moved, pct)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if moved, pct := md.Detect(&empty); moved || pct != 0 {
		t.Errorf("empty frame = %v, %v", moved, pct)
	}
	if md.initialized {
		t.Error("empty frames should not set a baseline")
	}
}

func TestMotionDetector_HandEntersFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name      string
		threshold float64
		want      bool
	}{
		{"sensitive", 1, true},
		{"insensitive", 50, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			empty := blankFrame(t)
			hand := handFrame(t, 120, 80)

			if moved, _ := md.Detect(&empty); moved {
				t.Fatal("the first frame only sets the baseline")
			}
			moved, pct := md.Detect(&hand)
			if moved != tt.want {
				t.Errorf("moved = %v at %.2f%% changed, want %v", moved, pct, tt.want)
			}
			// An 80x80 square covers about 8% of a 320x240 frame.
			if pct < 3 || pct > 20 {
				t.Errorf("changed = %.2f%%, want roughly 8%%", pct)
			}
		})
	}
}

func TestMotionDetector_StillHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1)
	defer md.Close()

	a := handFrame(t, 100, 60)
	b := handFrame(t, 100, 60)

	md.Detect(&a)
	if moved, pct := md.Detect(&b); moved || pct != 0 {
		t.Errorf("a hand held still should not register motion, got %v at %.2f%%", moved, pct)
	}
}

func TestMotionDetector_ResetRebaselines(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1)
	defer md.Close()

	empty := blankFrame(t)
	hand := handFrame(t, 40, 40)

	md.Detect(&empty)
	md.Reset()
	if !md.prevGray.Empty() || md.initialized {
		t.Fatal("Reset should drop the baseline")
	}

	if moved, _ := md.Detect(&hand); moved {
		t.Error("the first frame after Reset only sets the baseline")
	}

	md.Close()
	md.Close()
	if moved, _ := md.Detect(&empty); moved {
		t.Error("the first frame after Close only sets the baseline")
	}
}

func TestMotionDetector_DrivesGate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1)
	defer md.Close()
	gate := NewMotionGate(GateConfig{})

	empty := blankFrame(t)
	left := handFrame(t, 40, 80)
	right := handFrame(t, 200, 80)

	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	frames := []*gocv.Mat{&empty, &empty, &left, &right}
	var mode Mode
	for i, f := range frames {
		moved, _ := md.Detect(f)
		mode, _ = gate.Observe(moved, start.Add(time.Duration(i)*200*time.Millisecond))
		if i < 2 && mode != ModeIdle {
			t.Fatalf("frame %d: mode = %v before any motion", i, mode)
		}
	}
	if mode != ModeActive || gate.FPS() != ActiveFPS {
		t.Errorf("mode = %v at %d fps, want active at %d", mode, gate.FPS(), ActiveFPS)
	}
}
