package gesture

// EngineConfig configures an Engine.
type EngineConfig struct {
	ConfidenceThreshold float64
	Smoothing           StrategyConfig
	History             HistoryConfig
}

// DefaultEngineConfig returns the service defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Smoothing:           DefaultStrategyConfig(),
		History:             DefaultHistoryConfig(),
	}
}

// Outcome is the result of processing one gesture event.
type Outcome struct {
	Result   Result     `json:"result"`
	Smoothed Trajectory `json:"smoothed_points,omitempty"`
	Recorded bool       `json:"recorded"`
	Compound string     `json:"compound,omitempty"`
}

// Engine chains smoothing, classification and history tracking. Callers own
// their Engine; there is no package-level instance.
type Engine struct {
	smoother   Smoother
	classifier *Classifier
	history    *History
}

// NewEngine builds an Engine, failing on the first invalid setting.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	smoother, err := NewSmoother(cfg.Smoothing)
	if err != nil {
		return nil, err
	}
	classifier, err := NewClassifier(cfg.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	history, err := NewHistory(cfg.History)
	if err != nil {
		return nil, err
	}
	return &Engine{smoother: smoother, classifier: classifier, history: history}, nil
}

// Process smooths t, classifies it (falling back to pose for degenerate input),
// records the result and checks for a compound gesture.
func (e *Engine) Process(t Trajectory, pose StaticPose) Outcome {
	smoothed := e.smoother.Smooth(t)
	result := e.classifier.Classify(smoothed, pose)
	recorded, compound, _ := e.history.RecordAndMatch(result)
	return Outcome{
		Result:   result,
		Smoothed: smoothed,
		Recorded: recorded,
		Compound: compound,
	}
}

// Classify smooths and classifies without touching the history.
func (e *Engine) Classify(t Trajectory, pose StaticPose) Result {
	return e.classifier.Classify(e.smoother.Smooth(t), pose)
}

// Smooth applies the engine's configured smoother.
func (e *Engine) Smooth(t Trajectory) Trajectory {
	return e.smoother.Smooth(t)
}

// RecordAndCheckCompound records an externally produced result and returns the
// compound action it completes, if any.
func (e *Engine) RecordAndCheckCompound(r Result) (string, bool) {
	_, action, ok := e.history.RecordAndMatch(r)
	return action, ok
}

// History returns the engine's history buffer.
func (e *Engine) History() *History {
	return e.history
}

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Smoother returns the engine's smoother.
func (e *Engine) Smoother() Smoother {
	return e.smoother
}
