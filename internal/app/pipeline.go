package app

import (
	"context"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/palmpay/internal/capture"
	"github.com/ayusman/palmpay/internal/detector"
)

// runPipeline is the camera loop. It samples at the idle rate until the
// motion gate turns active, runs hand detection on active frames, and feeds
// the primary hand into the segmenter. Closed segments are processed like
// any other gesture.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(a.gate.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if a.handleFrame(ctx, frame, now) {
				ticker.Reset(a.gate.Interval())
			}
		}
	}
}

// handleFrame runs one frame through motion gating and hand detection. It
// takes ownership of frame and reports whether the sampling rate changed.
func (a *App) handleFrame(ctx context.Context, frame *gocv.Mat, now time.Time) bool {
	defer frame.Close()

	motion, _ := a.motion.Detect(frame)
	mode, changed := a.gate.Observe(motion, now)
	if changed {
		a.camera.SetFPS(a.gate.FPS())
		log.Printf("Switched to %s mode", mode)
		if mode == capture.ModeIdle {
			if seg, ok := a.segmenter.Flush(); ok {
				a.ProcessSegment(ctx, seg)
			}
		}
	}

	if mode != capture.ModeActive {
		return changed
	}

	d := a.Detector()
	if d == nil {
		return changed
	}

	stop := a.monitor.Time("detect")
	hands, err := d.Detect(frame)
	stop()
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return changed
	}

	a.handleHands(ctx, hands, now)
	return changed
}

// handleHands feeds the primary hand of one frame to the segmenter and
// processes the segment it closes, if any.
func (a *App) handleHands(ctx context.Context, hands []detector.HandLandmarks, now time.Time) (Report, bool) {
	var hand *detector.HandLandmarks
	if h, ok := detector.Primary(hands); ok {
		hand = &h
	}

	seg, ok := a.segmenter.Push(hand, now.UnixMilli())
	if !ok {
		return Report{}, false
	}
	return a.ProcessSegment(ctx, seg), true
}
