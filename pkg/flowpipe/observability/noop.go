package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Used when metrics are disabled.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordStepExecution does nothing.
func (NoopMetrics) RecordStepExecution(_ context.Context, _, _ string, _ time.Duration) {}

// RecordStepRetry does nothing.
func (NoopMetrics) RecordStepRetry(_ context.Context, _ string) {}

// RecordFlowRun does nothing.
func (NoopMetrics) RecordFlowRun(_ context.Context, _ string, _ bool, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
// Used when tracing is disabled.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartFlowSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartFlowSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartStepSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartStepSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
