package flowpipe

import (
	"log/slog"

	"github.com/RichLycus/flowpipe/pkg/flowpipe/observability"
)

// Executor orchestrates flow runs. It is stateless across runs and safe
// for concurrent use; all per-run state lives in the Context.
type Executor struct {
	loader  *Loader
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLoader provides the loader used to resolve fallback flow
// identifiers at run time. Without a loader, the fallback stage of error
// recovery is skipped.
func WithLoader(loader *Loader) ExecutorOption {
	return func(e *Executor) {
		e.loader = loader
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables OpenTelemetry metrics via the global meter provider.
func WithMetrics(enabled bool) ExecutorOption {
	return func(e *Executor) {
		if enabled {
			e.metrics = observability.NewMetricsRecorder()
		} else {
			e.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing via the global tracer provider.
func WithTracing(enabled bool) ExecutorOption {
	return func(e *Executor) {
		if enabled {
			e.spans = observability.NewSpanManager()
		} else {
			e.spans = observability.NoopSpanManager{}
		}
	}
}

// NewExecutor creates an executor. Metrics and tracing default to off.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
