package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("flowpipe")

// SpanManager handles trace span lifecycle for flow runs.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartFlowSpan starts a span covering the entire flow run.
	StartFlowSpan(ctx context.Context, flowID, runID string) (context.Context, trace.Span)

	// StartStepSpan starts a child span for one step execution.
	StartStepSpan(ctx context.Context, stepID, agent string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by OpenTelemetry.
//
// The span manager uses the global OTel tracer provider; configure it before
// calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartFlowSpan starts a span covering the entire flow run.
func (m *otelSpanManager) StartFlowSpan(ctx context.Context, flowID, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowpipe.run",
		trace.WithAttributes(
			attribute.String("flow.id", flowID),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStepSpan starts a child span for one step execution.
func (m *otelSpanManager) StartStepSpan(ctx context.Context, stepID, agent string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowpipe.step."+stepID,
		trace.WithAttributes(
			attribute.String("step.id", stepID),
			attribute.String("step.agent", agent),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, recording err if non-nil.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
