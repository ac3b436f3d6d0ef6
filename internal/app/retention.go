package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// EventPruner deletes stored events older than a cutoff.
type EventPruner interface {
	DeleteBefore(t time.Time) (int64, error)
}

// Retention periodically prunes the event log.
type Retention struct {
	cron   *cron.Cron
	events EventPruner
	maxAge time.Duration
	now    func() time.Time
}

// NewRetention schedules pruning of events older than maxAge. schedule is a
// standard cron expression or descriptor such as "@daily".
func NewRetention(events EventPruner, schedule string, maxAge time.Duration) (*Retention, error) {
	r := &Retention{
		cron:   cron.New(),
		events: events,
		maxAge: maxAge,
		now:    time.Now,
	}

	if _, err := r.cron.AddFunc(schedule, func() {
		if _, err := r.RunOnce(); err != nil {
			log.Printf("Retention run failed: %v", err)
		}
	}); err != nil {
		return nil, err
	}

	return r, nil
}

// RunOnce deletes events older than maxAge and returns how many were removed.
// A zero maxAge keeps everything.
func (r *Retention) RunOnce() (int64, error) {
	if r.maxAge <= 0 {
		return 0, nil
	}

	n, err := r.events.DeleteBefore(r.now().Add(-r.maxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("Retention pruned %d events older than %s", n, r.maxAge)
	}
	return n, nil
}

// Start runs the scheduler in its own goroutine.
func (r *Retention) Start() {
	r.cron.Start()
}

// Stop halts the scheduler. The returned context is done once a running
// prune has finished.
func (r *Retention) Stop() context.Context {
	return r.cron.Stop()
}
