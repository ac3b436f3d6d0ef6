// Package app wires the palmpay recognition engine to its inputs (camera
// pipeline, HTTP callers) and outputs (event log, plugins, listeners).
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/palmpay/internal/capture"
	"github.com/ayusman/palmpay/internal/detector"
	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/monitor"
	"github.com/ayusman/palmpay/internal/store"
)

// Config holds configuration options for the application. Only Engine is
// required; nil collaborators disable the feature that needs them.
type Config struct {
	Engine     *gesture.Engine
	Store      *store.Store
	Dispatcher *Dispatcher
	Monitor    *monitor.Latency

	// Pipeline inputs. A nil Camera opens device CameraID on Start; a nil
	// Detector tries MediaPipe and falls back to the mock detector.
	Camera          capture.Camera
	Detector        detector.Detector
	CameraID        int
	MotionThreshold float64
	DetectorScript  string
	Segmenter       SegmenterConfig
}

// Report is everything that happened for one processed gesture.
type Report struct {
	gesture.Outcome
	Action    string    `json:"action,omitempty"`
	Dispatch  *Dispatch `json:"dispatch,omitempty"`
	EventID   string    `json:"event_id,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// App is the main application that orchestrates gesture processing and
// action dispatch.
type App struct {
	config     Config
	engine     *gesture.Engine
	dispatcher *Dispatcher
	monitor    *monitor.Latency

	camera    capture.Camera
	motion    *capture.MotionDetector
	gate      *capture.MotionGate
	detector  detector.Detector
	segmenter *Segmenter

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	done      chan struct{}
	listeners []func(Report)
	last      *Report
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	engine := config.Engine
	if engine == nil {
		engine, _ = gesture.NewEngine(gesture.DefaultEngineConfig())
	}

	dispatcher := config.Dispatcher
	if dispatcher == nil {
		dispatcher = NewDispatcher(DispatcherConfig{})
	}

	mon := config.Monitor
	if mon == nil {
		mon = monitor.NewLatency(monitor.DefaultSamples, 0)
	}

	a := &App{
		config:     config,
		engine:     engine,
		dispatcher: dispatcher,
		monitor:    mon,
		camera:     config.Camera,
		motion:     capture.NewMotionDetector(config.MotionThreshold),
		gate:       capture.NewMotionGate(capture.GateConfig{}),
		detector:   config.Detector,
		segmenter:  NewSegmenter(config.Segmenter),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(capture.CameraConfig{DeviceID: config.CameraID, FPS: capture.IdleFPS})
	}

	if a.detector == nil {
		dcfg := detector.DefaultConfig()
		dcfg.ScriptPath = config.DetectorScript
		if mp, err := detector.NewMediaPipeDetector(dcfg); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// Engine returns the recognition engine.
func (a *App) Engine() *gesture.Engine {
	return a.engine
}

// Dispatcher returns the action dispatcher.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// Monitor returns the latency monitor.
func (a *App) Monitor() *monitor.Latency {
	return a.monitor
}

// OnOutcome registers fn to be called after every processed gesture.
// Callbacks run synchronously on the processing goroutine.
func (a *App) OnOutcome(fn func(Report)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Last returns the most recent report, or nil before the first gesture.
func (a *App) Last() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return nil
	}
	r := *a.last
	return &r
}

// Process runs t and pose through the engine, dispatches the resulting
// action, stores the event and notifies listeners.
func (a *App) Process(ctx context.Context, t gesture.Trajectory, pose gesture.StaticPose, source string) Report {
	stop := a.monitor.Time("process")
	outcome := a.engine.Process(t, pose)
	stop()

	report := Report{
		Outcome:   outcome,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}

	dispatch, err := a.dispatcher.Dispatch(ctx, outcome)
	if err != nil {
		log.Printf("Dispatch failed for %s: %v", outcome.Result.GestureType, err)
	}
	if dispatch != nil {
		report.Dispatch = dispatch
		report.Action = dispatch.Action
	}

	if outcome.Compound != "" {
		log.Printf("Compound gesture matched: %s", outcome.Compound)
	}

	if a.config.Store != nil {
		event := &store.Event{
			GestureType:      string(outcome.Result.GestureType),
			Confidence:       outcome.Result.Confidence,
			IsValid:          outcome.Result.IsValid,
			TrajectoryLength: outcome.Result.TrajectoryLength,
			Action:           report.Action,
			Compound:         outcome.Compound,
			Source:           source,
			CreatedAt:        report.Timestamp,
		}
		if err := a.config.Store.Events().Create(event); err != nil {
			log.Printf("Failed to store gesture event: %v", err)
		} else {
			report.EventID = event.ID
		}
	}

	a.mu.Lock()
	a.last = &report
	listeners := append([]func(Report)(nil), a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(report)
	}
	return report
}

// ProcessSegment processes a segment closed by the camera pipeline.
func (a *App) ProcessSegment(ctx context.Context, seg Segment) Report {
	return a.Process(ctx, seg.Trajectory, seg.Pose, store.SourcePipeline)
}

// SetEnabled enables or disables the camera pipeline.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether the camera pipeline is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.gate.Reset()
	a.camera.SetFPS(a.gate.FPS())

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases its resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Gate returns the motion gate driving the frame rate.
func (a *App) Gate() *capture.MotionGate {
	return a.gate
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}
