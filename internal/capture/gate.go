package capture

import (
	"sync"
	"time"
)

// Sampling rates for the detection pipeline.
const (
	IdleFPS            = 5
	ActiveFPS          = 15
	DefaultIdleTimeout = 2 * time.Second
)

// Mode is the sampling mode of the pipeline.
type Mode int

const (
	ModeIdle Mode = iota
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// GateConfig configures a MotionGate. Zero fields take the package defaults.
type GateConfig struct {
	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration
}

// MotionGate switches between idle and active sampling. Any motion makes it
// active; it falls back to idle once no motion has been seen for IdleTimeout.
type MotionGate struct {
	mu         sync.Mutex
	cfg        GateConfig
	mode       Mode
	lastMotion time.Time
}

// NewMotionGate returns a gate in idle mode.
func NewMotionGate(cfg GateConfig) *MotionGate {
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &MotionGate{cfg: cfg}
}

// Observe feeds one motion reading taken at now. It returns the resulting mode
// and whether the mode changed.
func (g *MotionGate) Observe(motion bool, now time.Time) (Mode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.mode
	switch {
	case motion:
		g.lastMotion = now
		g.mode = ModeActive
	case g.mode == ModeActive && now.Sub(g.lastMotion) > g.cfg.IdleTimeout:
		g.mode = ModeIdle
	}
	return g.mode, g.mode != prev
}

// Mode returns the current mode.
func (g *MotionGate) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// FPS returns the sampling rate for the current mode.
func (g *MotionGate) FPS() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeActive {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// Interval returns the frame interval for the current mode.
func (g *MotionGate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}

// Reset returns the gate to idle.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = ModeIdle
	g.lastMotion = time.Time{}
}
