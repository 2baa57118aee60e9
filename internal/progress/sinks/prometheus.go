package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/racekit/pacer/internal/progress"
)

// PrometheusSink exports runner progress metrics via Prometheus. It owns all
// collectors for runs started/finished/paused, active runners, ticks, and
// per-runner progress ratios.
type PrometheusSink struct {
	runsStarted  prometheus.Counter
	runsStopped  *prometheus.CounterVec
	active       prometheus.Gauge
	runDuration  *prometheus.HistogramVec
	ticks        *prometheus.CounterVec
	progressRatio *prometheus.GaugeVec

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pacer_runs_started_total",
			Help: "Total run invocations, including resumes.",
		}),
		runsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_runs_stopped_total",
			Help: "Total run exits partitioned by outcome.",
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pacer_runners_active",
			Help: "Current number of runners with an active loop.",
		}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacer_run_duration_seconds",
			Help:    "Wall time per run leg partitioned by outcome.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pacer_ticks_total",
			Help: "Completed sleep-then-increment cycles per runner.",
		}, []string{"runner"}),
		progressRatio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pacer_run_progress_ratio",
			Help: "Progress toward the maximum, 0 to 1, per runner.",
		}, []string{"runner"}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsStopped,
		s.active,
		s.runDuration,
		s.ticks,
		s.progressRatio,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.active.Inc()
		}
	case progress.StageRunTick:
		s.ticks.WithLabelValues(evt.Name).Inc()
	case progress.StageRunPaused:
		s.stopRun(evt, "paused")
	case progress.StageRunDone:
		s.stopRun(evt, "finished")
	}
	if evt.Max > 0 {
		s.progressRatio.WithLabelValues(evt.Name).Set(float64(evt.Progress) / float64(evt.Max))
	}
}

func (s *PrometheusSink) stopRun(evt progress.Event, outcome string) {
	s.runsStopped.WithLabelValues(outcome).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
	}
	if s.tracker.stop(evt.RunID) {
		s.active.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) stop(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
