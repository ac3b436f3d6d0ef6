package gesture

import "strings"

// Smoother denoises a trajectory. Implementations always return a trajectory of
// the same length as their input and leave trajectories shorter than two points
// untouched.
type Smoother interface {
	Smooth(t Trajectory) Trajectory
	Name() string
}

// Strategy names accepted by NewSmoother.
const (
	StrategyMovingAverage = "moving_average"
	StrategyExponential   = "exponential"
	StrategyKalman        = "kalman"
	StrategyTremor        = "tremor"
	StrategyAdaptive      = "adaptive"
)

// Smoothing defaults.
const (
	DefaultWindowSize        = 5
	DefaultAlpha             = 0.3
	DefaultMeasurementNoise  = 0.5
	DefaultProcessNoise      = 0.1
	DefaultDistanceThreshold = 2.0
	DefaultVelocityThreshold = 10.0
)

// StrategyConfig selects a smoothing strategy and its parameters. Parameters
// are taken as given; start from DefaultStrategyConfig to get the defaults.
type StrategyConfig struct {
	Name              string  `json:"name" mapstructure:"strategy"`
	WindowSize        int     `json:"window_size" mapstructure:"window_size"`
	Alpha             float64 `json:"alpha" mapstructure:"alpha"`
	MeasurementNoise  float64 `json:"measurement_noise" mapstructure:"measurement_noise"`
	ProcessNoise      float64 `json:"process_noise" mapstructure:"process_noise"`
	DistanceThreshold float64 `json:"distance_threshold" mapstructure:"distance_threshold"`
	VelocityThreshold float64 `json:"velocity_threshold" mapstructure:"velocity_threshold"`
}

// DefaultStrategyConfig returns moving average smoothing with every
// strategy's parameters set to its default.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Name:              StrategyMovingAverage,
		WindowSize:        DefaultWindowSize,
		Alpha:             DefaultAlpha,
		MeasurementNoise:  DefaultMeasurementNoise,
		ProcessNoise:      DefaultProcessNoise,
		DistanceThreshold: DefaultDistanceThreshold,
		VelocityThreshold: DefaultVelocityThreshold,
	}
}

// NewSmoother builds the strategy described by cfg.
func NewSmoother(cfg StrategyConfig) (Smoother, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "", StrategyMovingAverage:
		return NewMovingAverage(cfg.WindowSize)
	case StrategyExponential:
		return NewExponential(cfg.Alpha)
	case StrategyKalman:
		return NewKalman(cfg.MeasurementNoise, cfg.ProcessNoise)
	case StrategyTremor:
		return NewTremor(cfg.DistanceThreshold)
	case StrategyAdaptive:
		return NewAdaptive(cfg.VelocityThreshold)
	default:
		return nil, configErr("smoothing strategy", cfg.Name, "unknown strategy")
	}
}

// Smooth applies s to t. A nil smoother returns a copy of t.
func Smooth(t Trajectory, s Smoother) Trajectory {
	if s == nil {
		return t.Clone()
	}
	return s.Smooth(t)
}

// MovingAverage replaces each interior point with the mean of a centred window.
// The first and last points are kept so swipe endpoints survive smoothing.
type MovingAverage struct {
	WindowSize int
}

// NewMovingAverage returns a moving average smoother over windowSize points.
func NewMovingAverage(windowSize int) (*MovingAverage, error) {
	if windowSize <= 0 {
		return nil, configErr("window_size", windowSize, "must be positive")
	}
	return &MovingAverage{WindowSize: windowSize}, nil
}

func (m *MovingAverage) Name() string { return StrategyMovingAverage }

func (m *MovingAverage) Smooth(t Trajectory) Trajectory {
	n := len(t)
	if n < 2 {
		return t
	}
	half := m.WindowSize / 2
	out := make(Trajectory, n)
	out[0], out[n-1] = t[0], t[n-1]
	for i := 1; i < n-1; i++ {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		var sx, sy float64
		for _, p := range t[lo:hi] {
			sx += p.X
			sy += p.Y
		}
		k := float64(hi - lo)
		out[i] = Point{X: sx / k, Y: sy / k, Timestamp: t[i].Timestamp}
	}
	return out
}

// Exponential is a single forward exponential moving average.
type Exponential struct {
	Alpha float64
}

// NewExponential returns an exponential smoother; alpha must be in (0,1].
func NewExponential(alpha float64) (*Exponential, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, configErr("alpha", alpha, "must be in (0, 1]")
	}
	return &Exponential{Alpha: alpha}, nil
}

func (e *Exponential) Name() string { return StrategyExponential }

func (e *Exponential) Smooth(t Trajectory) Trajectory {
	if len(t) < 2 {
		return t
	}
	return blend(t, func(int) float64 { return e.Alpha })
}

// Kalman is a simplified scalar Kalman filter. Both axes share one estimate error.
type Kalman struct {
	MeasurementNoise float64
	ProcessNoise     float64
}

// NewKalman returns a Kalman smoother. Measurement noise must be positive and
// process noise non-negative.
func NewKalman(measurementNoise, processNoise float64) (*Kalman, error) {
	if !(measurementNoise > 0) {
		return nil, configErr("measurement_noise", measurementNoise, "must be positive")
	}
	if !(processNoise >= 0) {
		return nil, configErr("process_noise", processNoise, "must not be negative")
	}
	return &Kalman{MeasurementNoise: measurementNoise, ProcessNoise: processNoise}, nil
}

func (k *Kalman) Name() string { return StrategyKalman }

func (k *Kalman) Smooth(t Trajectory) Trajectory {
	if len(t) < 2 {
		return t
	}
	out := make(Trajectory, len(t))
	est := t[0]
	p := 1.0
	for i, z := range t {
		gain := p / (p + k.MeasurementNoise)
		est.X += gain * (z.X - est.X)
		est.Y += gain * (z.Y - est.Y)
		p = (1-gain)*p + k.ProcessNoise
		out[i] = Point{X: est.X, Y: est.Y, Timestamp: z.Timestamp}
	}
	return out
}

// Tremor averages out small jitters. An interior point is replaced by the mean of
// the previous filtered point, itself and the next raw point when both hops are
// shorter than DistanceThreshold.
type Tremor struct {
	DistanceThreshold float64
}

// NewTremor returns a tremor filter with the given hop threshold.
func NewTremor(distanceThreshold float64) (*Tremor, error) {
	if !(distanceThreshold > 0) {
		return nil, configErr("distance_threshold", distanceThreshold, "must be positive")
	}
	return &Tremor{DistanceThreshold: distanceThreshold}, nil
}

func (f *Tremor) Name() string { return StrategyTremor }

func (f *Tremor) Smooth(t Trajectory) Trajectory {
	n := len(t)
	if n < 2 {
		return t
	}
	out := make(Trajectory, n)
	out[0], out[n-1] = t[0], t[n-1]
	for i := 1; i < n-1; i++ {
		prev, cur, next := out[i-1], t[i], t[i+1]
		if distance(prev, cur) < f.DistanceThreshold && distance(cur, next) < f.DistanceThreshold {
			out[i] = Point{
				X:         (prev.X + cur.X + next.X) / 3,
				Y:         (prev.Y + cur.Y + next.Y) / 3,
				Timestamp: cur.Timestamp,
			}
			continue
		}
		out[i] = cur
	}
	return out
}

// Adaptive trusts new samples under fast motion and smooths heavily under slow motion.
type Adaptive struct {
	VelocityThreshold float64
}

const (
	adaptiveFastAlpha = 0.7
	adaptiveSlowAlpha = 0.3
)

// NewAdaptive returns an adaptive smoother switching at velocityThreshold.
func NewAdaptive(velocityThreshold float64) (*Adaptive, error) {
	if !(velocityThreshold > 0) {
		return nil, configErr("velocity_threshold", velocityThreshold, "must be positive")
	}
	return &Adaptive{VelocityThreshold: velocityThreshold}, nil
}

func (a *Adaptive) Name() string { return StrategyAdaptive }

func (a *Adaptive) Smooth(t Trajectory) Trajectory {
	if len(t) < 2 {
		return t
	}
	return blend(t, func(i int) float64 {
		if distance(t[i], t[i-1]) > a.VelocityThreshold {
			return adaptiveFastAlpha
		}
		return adaptiveSlowAlpha
	})
}

// blend runs out[i] = alpha(i)*t[i] + (1-alpha(i))*out[i-1] with out[0] = t[0].
func blend(t Trajectory, alpha func(i int) float64) Trajectory {
	out := make(Trajectory, len(t))
	out[0] = t[0]
	for i := 1; i < len(t); i++ {
		a := alpha(i)
		out[i] = Point{
			X:         a*t[i].X + (1-a)*out[i-1].X,
			Y:         a*t[i].Y + (1-a)*out[i-1].Y,
			Timestamp: t[i].Timestamp,
		}
	}
	return out
}
