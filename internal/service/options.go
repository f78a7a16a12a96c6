package service

import (
	"context"
	"time"

	"github.com/macho715/tr-dash/internal/collision"
	"github.com/macho715/tr-dash/internal/logger"
	"github.com/macho715/tr-dash/internal/metrics"
	"github.com/macho715/tr-dash/internal/publish"
)

// Defaults fill request fields the caller left empty.
type Defaults struct {
	Actor           string
	Baseline        string
	BaselineOptions collision.BaselineOptions
}

// Option wires an optional collaborator into a service.
type Option func(*runtime)

type runtime struct {
	observer  UseCaseObserver
	publisher publish.Publisher
	metrics   metrics.Sink
	log       logger.Logger
	now       func() time.Time
}

func newRuntime(opts []Option) runtime {
	rt := runtime{
		observer:  NoopUseCaseObserver{},
		publisher: publish.NopPublisher{},
		metrics:   metrics.NopSink{},
		log:       logger.NopLogger{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&rt)
	}
	return rt
}

func WithObserver(o UseCaseObserver) Option {
	return func(rt *runtime) {
		if o != nil {
			rt.observer = o
		}
	}
}

func WithPublisher(p publish.Publisher) Option {
	return func(rt *runtime) {
		if p != nil {
			rt.publisher = p
		}
	}
}

func WithMetrics(m metrics.Sink) Option {
	return func(rt *runtime) {
		if m != nil {
			rt.metrics = m
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(rt *runtime) {
		if l != nil {
			rt.log = l
		}
	}
}

// WithClock replaces the wall clock used when a request carries no time.
func WithClock(now func() time.Time) Option {
	return func(rt *runtime) {
		if now != nil {
			rt.now = now
		}
	}
}

func (rt runtime) observe(ctx context.Context, name string, startedAt time.Time, err error, fields map[string]any) {
	rt.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}
