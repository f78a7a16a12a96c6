// Package metrics records reflow and collision-detection activity in Prometheus.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/macho715/tr-dash/internal/domain"
)

// Sink receives the outcome of every reflow and detection pass.
type Sink interface {
	RecordRun(run *domain.ReflowRun, elapsed time.Duration)
	RecordCollisions(cs []domain.Collision)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordRun(*domain.ReflowRun, time.Duration) {}
func (NopSink) RecordCollisions([]domain.Collision)        {}

// PromSink records reflow runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	collisions *prometheus.CounterVec
	changes    prometheus.Counter
	duration   *prometheus.HistogramVec
	version    prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trflow_reflow_runs_total",
			Help: "Reflow runs by trigger kind and final state",
		}, []string{"trigger", "state"}),
		collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trflow_collisions_total",
			Help: "Collisions reported by kind and severity",
		}, []string{"kind", "severity"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trflow_reflow_changes_total",
			Help: "Activities whose plan window moved in a committed run",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trflow_reflow_duration_seconds",
			Help:    "Wall time of a reflow run from load to commit",
			Buckets: prometheus.DefBuckets,
		}, []string{"state"}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trflow_snapshot_version",
			Help: "Version of the last committed snapshot",
		}),
	}

	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.collisions, err = register(reg, s.collisions); err != nil {
		return nil, err
	}
	if s.changes, err = register(reg, s.changes); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.version, err = register(reg, s.version); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("registering collector: %w", err)
	}
	return c, nil
}

// RecordRun counts a finalized run. Changes and version only move on commit.
func (s *PromSink) RecordRun(run *domain.ReflowRun, elapsed time.Duration) {
	s.runs.WithLabelValues(string(run.Trigger.Kind), string(run.State)).Inc()
	s.duration.WithLabelValues(string(run.State)).Observe(elapsed.Seconds())
	if run.State == domain.RunCommitted {
		s.changes.Add(float64(len(run.Changes)))
		s.version.Set(float64(run.CommittedVersion))
	}
}

func (s *PromSink) RecordCollisions(cs []domain.Collision) {
	for _, c := range cs {
		s.collisions.WithLabelValues(string(c.Kind), string(c.Severity)).Inc()
	}
}

// WriteTextfile dumps everything gathered by g in the node-exporter textfile
// format. The parent directory is created when missing.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
