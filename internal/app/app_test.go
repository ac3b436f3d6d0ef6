package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/palmpay/internal/capture"
	"github.com/ayusman/palmpay/internal/detector"
	"github.com/ayusman/palmpay/internal/gesture"
	"github.com/ayusman/palmpay/internal/plugin"
	"github.com/ayusman/palmpay/internal/store"
	"gocv.io/x/gocv"
)

// newTestApp builds an App with a mock camera and detector and a temp store.
func newTestApp(t *testing.T, cfg Config) (*App, *store.Store, *detector.MockDetector) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	mock := detector.NewMockDetector()
	cfg.Store = s
	cfg.Camera = capture.NewMockCamera(nil, true)
	cfg.Detector = mock

	return New(cfg), s, mock
}

// pushFrames feeds frames to the pipeline stage after detection.
func pushFrames(a *App, frames [][]detector.HandLandmarks) []Report {
	var reports []Report
	start := time.Now()
	for i, hands := range frames {
		if r, ok := a.handleHands(context.Background(), hands, start.Add(time.Duration(i)*66*time.Millisecond)); ok {
			reports = append(reports, r)
		}
	}
	return reports
}

func swipeRight() [][]detector.HandLandmarks {
	return append(detector.SwipeFrames(detector.OpenPalmLandmarks(), 10, 0.03, 0), emptyFrames(DefaultGapFrames)...)
}

func thumbsUpHold() [][]detector.HandLandmarks {
	return append(heldFrames(detector.ThumbsUpLandmarks(), 5), emptyFrames(DefaultGapFrames)...)
}

func TestApp_Process(t *testing.T) {
	a, s, _ := newTestApp(t, Config{})

	var seen []Report
	a.OnOutcome(func(r Report) { seen = append(seen, r) })

	traj := gesture.Trajectory{{X: 0.1, Y: 0.5}, {X: 0.2, Y: 0.5}, {X: 0.35, Y: 0.5}, {X: 0.5, Y: 0.5}}
	r := a.Process(context.Background(), traj, nil, store.SourceAPI)

	if r.Result.GestureType != gesture.TypeSwipeRight || !r.Result.IsValid {
		t.Fatalf("unexpected result: %+v", r.Result)
	}
	if r.Action != "payment" {
		t.Errorf("Action = %q, want payment", r.Action)
	}
	if r.EventID == "" {
		t.Error("event should be stored")
	}
	if len(seen) != 1 || seen[0].EventID != r.EventID {
		t.Errorf("listener not called with the report: %+v", seen)
	}
	if last := a.Last(); last == nil || last.EventID != r.EventID {
		t.Errorf("Last() = %+v", last)
	}

	events, err := s.Events().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 1 || events[0].Action != "payment" || events[0].Source != store.SourceAPI {
		t.Errorf("unexpected stored events: %+v", events)
	}

	if a.Monitor().OperationStats("process").Count != 1 {
		t.Error("process latency should be recorded")
	}
}

func TestApp_Process_LowConfidence(t *testing.T) {
	a, s, _ := newTestApp(t, Config{})

	r := a.Process(context.Background(), gesture.Trajectory{{X: 0.5, Y: 0.5}}, nil, store.SourceAPI)
	if r.Result.GestureType != gesture.TypeNone {
		t.Errorf("GestureType = %s, want none", r.Result.GestureType)
	}
	if r.Action != "" || r.Dispatch != nil {
		t.Errorf("invalid gestures should not dispatch: %+v", r.Dispatch)
	}

	counts, _ := s.Events().CountByType()
	if counts["none"] != 1 {
		t.Errorf("low confidence events are still logged, counts = %v", counts)
	}
}

func TestApp_PipelineSwipe(t *testing.T) {
	a, s, _ := newTestApp(t, Config{})

	reports := pushFrames(a, swipeRight())
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}

	r := reports[0]
	if r.Result.GestureType != gesture.TypeSwipeRight {
		t.Errorf("GestureType = %s, want swipe_right", r.Result.GestureType)
	}
	if r.Source != store.SourcePipeline {
		t.Errorf("Source = %q, want pipeline", r.Source)
	}
	if r.Result.TrajectoryLength != 10 {
		t.Errorf("TrajectoryLength = %d, want 10", r.Result.TrajectoryLength)
	}

	events, _ := s.Events().List(0)
	if len(events) != 1 || events[0].Source != store.SourcePipeline {
		t.Errorf("unexpected stored events: %+v", events)
	}
}

func TestApp_PipelineQuickPayRunsPlugin(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	if err := s.Bindings().Create(&store.Binding{
		Trigger: "quick_pay", PluginName: "ledger", ActionName: "quick_pay", Enabled: true,
	}); err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	runner := &fakeRunner{}
	a := New(Config{
		Store:    s,
		Camera:   capture.NewMockCamera(nil, true),
		Detector: detector.NewMockDetector(),
		Dispatcher: NewDispatcher(DispatcherConfig{
			Bindings: s.Bindings(),
			Plugins:  ledgerManager(),
			Runner:   runner,
		}),
	})

	var frames [][]detector.HandLandmarks
	frames = append(frames, swipeRight()...)
	frames = append(frames, thumbsUpHold()...)
	frames = append(frames, swipeRight()...)

	reports := pushFrames(a, frames)
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}

	if got := reports[1].Result.GestureType; got != gesture.TypeTap {
		t.Errorf("held thumbs up classified as %s, want tap", got)
	}

	last := reports[2]
	if last.Compound != "quick_pay" {
		t.Fatalf("Compound = %q, want quick_pay", last.Compound)
	}
	if last.Dispatch == nil || !last.Dispatch.Executed {
		t.Fatalf("quick_pay binding should run the plugin: %+v", last.Dispatch)
	}
	if len(runner.requests) != 1 || runner.requests[0].Compound != "quick_pay" {
		t.Errorf("unexpected plugin requests: %+v", runner.requests)
	}

	events, _ := s.Events().List(1)
	if len(events) != 1 || events[0].Compound != "quick_pay" {
		t.Errorf("compound should be stored with the event: %+v", events)
	}
}

func TestApp_EnableToggle(t *testing.T) {
	a, _, _ := newTestApp(t, Config{})

	if a.IsEnabled() {
		t.Error("pipeline should start disabled")
	}
	a.SetEnabled(true)
	if !a.IsEnabled() {
		t.Error("SetEnabled(true) did not enable the pipeline")
	}
}

func TestApp_StartStop(t *testing.T) {
	a, _, _ := newTestApp(t, Config{})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.Camera().IsOpen() {
		t.Error("camera should be open after Start")
	}
	if a.Camera().FPS() != capture.IdleFPS {
		t.Errorf("FPS = %d, want idle rate %d", a.Camera().FPS(), capture.IdleFPS)
	}
	if err := a.Start(); err != nil {
		t.Errorf("second Start() should be a no-op, got %v", err)
	}

	a.Stop()
	if a.Camera().IsOpen() {
		t.Error("camera should be closed after Stop")
	}
}

func TestApp_HandleFrameGatesDetection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	a, _, mock := newTestApp(t, Config{MotionThreshold: 0.5})
	mock.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})

	dark := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer dark.Close()
	bright := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer bright.Close()

	now := time.Now()
	frame := dark.Clone()
	a.handleFrame(context.Background(), &frame, now)
	if a.Gate().Mode() != capture.ModeIdle || mock.Calls() != 0 {
		t.Fatalf("first frame sets the baseline and should not run detection")
	}

	frame = bright.Clone()
	if changed := a.handleFrame(context.Background(), &frame, now.Add(200*time.Millisecond)); !changed {
		t.Fatal("motion should switch the gate to active")
	}
	if a.Camera().FPS() != capture.ActiveFPS {
		t.Errorf("FPS = %d, want %d", a.Camera().FPS(), capture.ActiveFPS)
	}
	if mock.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", mock.Calls())
	}

	frame = bright.Clone()
	if changed := a.handleFrame(context.Background(), &frame, now.Add(5*time.Second)); !changed {
		t.Fatal("a still frame after the idle timeout should switch back to idle")
	}
	if a.Camera().FPS() != capture.IdleFPS {
		t.Errorf("FPS = %d, want %d", a.Camera().FPS(), capture.IdleFPS)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Camera: capture.NewMockCamera(nil, true), Detector: detector.NewMockDetector()})

	if a.Engine() == nil || a.Dispatcher() == nil || a.Monitor() == nil {
		t.Fatal("New should fill in default collaborators")
	}
	if _, ok := a.Dispatcher().ActionFor(gesture.TypeCircle); !ok {
		t.Error("default dispatcher should know the circle action")
	}

	var _ PluginRunner = plugin.NewExecutor(time.Second)
	var _ PluginSource = plugin.NewManager("")
	var _ BindingLookup = (*store.BindingRepository)(nil)
	var _ EventPruner = (*store.EventRepository)(nil)
}
