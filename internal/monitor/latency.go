// Package monitor keeps rolling latency samples for named operations.
package monitor

import (
	"log"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSamples is the rolling window size used when none is configured.
const DefaultSamples = 100

// Stats summarises a window of samples in milliseconds.
type Stats struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// window is a fixed-capacity ring of samples.
type window struct {
	samples []float64
	next    int
	full    bool
}

func newWindow(size int) *window {
	return &window{samples: make([]float64, size)}
}

func (w *window) add(ms float64) {
	w.samples[w.next] = ms
	w.next = (w.next + 1) % len(w.samples)
	if w.next == 0 {
		w.full = true
	}
}

func (w *window) values() []float64 {
	if w.full {
		return w.samples
	}
	return w.samples[:w.next]
}

func (w *window) stats() Stats {
	v := w.values()
	if len(v) == 0 {
		return Stats{}
	}
	return Stats{
		Avg:   stat.Mean(v, nil),
		Min:   floats.Min(v),
		Max:   floats.Max(v),
		Count: len(v),
	}
}

// Latency records durations overall and per operation.
type Latency struct {
	mu      sync.Mutex
	size    int
	slow    time.Duration
	overall *window
	ops     map[string]*window
}

// NewLatency creates a monitor keeping the last samples observations per
// window. Calls slower than slow are logged; zero disables the log.
func NewLatency(samples int, slow time.Duration) *Latency {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &Latency{
		size:    samples,
		slow:    slow,
		overall: newWindow(samples),
		ops:     make(map[string]*window),
	}
}

// Observe records one call of op taking d.
func (l *Latency) Observe(op string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	l.mu.Lock()
	l.overall.add(ms)
	w, ok := l.ops[op]
	if !ok {
		w = newWindow(l.size)
		l.ops[op] = w
	}
	w.add(ms)
	l.mu.Unlock()

	if l.slow > 0 && d > l.slow {
		log.Printf("monitor: slow %s took %s", op, d.Round(time.Microsecond))
	}
}

// Time starts a timer for op. Call the returned func when the operation ends.
//
//	defer mon.Time("classify")()
func (l *Latency) Time(op string) func() {
	start := time.Now()
	return func() {
		l.Observe(op, time.Since(start))
	}
}

// Stats summarises every operation together.
func (l *Latency) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overall.stats()
}

// OperationStats summarises op. Unknown operations return zero Stats.
func (l *Latency) OperationStats(op string) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.ops[op]
	if !ok {
		return Stats{}
	}
	return w.stats()
}

// Operations returns the names of all observed operations, sorted.
func (l *Latency) Operations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.ops))
	for name := range l.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Averages returns the mean latency in ms of every observed operation.
func (l *Latency) Averages() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]float64, len(l.ops))
	for name, w := range l.ops {
		out[name] = w.stats().Avg
	}
	return out
}
