package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records flow execution metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStepExecution records one step attempt with its duration and status.
	RecordStepExecution(ctx context.Context, stepID, status string, duration time.Duration)

	// RecordStepRetry records a retry of a critical step.
	RecordStepRetry(ctx context.Context, stepID string)

	// RecordFlowRun records a completed flow run.
	RecordFlowRun(ctx context.Context, flowID string, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	stepExecutions metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	stepRetries    metric.Int64Counter
	flowRuns       metric.Int64Counter
	flowLatency    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowpipe")

	stepExecutions, err := meter.Int64Counter("flowpipe.step.executions",
		metric.WithDescription("Number of step execution attempts"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("flowpipe.step.latency_ms",
		metric.WithDescription("Step execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("flowpipe.step.errors",
		metric.WithDescription("Number of step failures and timeouts"),
	)
	if err != nil {
		return nil, err
	}

	stepRetries, err := meter.Int64Counter("flowpipe.step.retries",
		metric.WithDescription("Number of step retries"),
	)
	if err != nil {
		return nil, err
	}

	flowRuns, err := meter.Int64Counter("flowpipe.flow.runs",
		metric.WithDescription("Number of flow runs"),
	)
	if err != nil {
		return nil, err
	}

	flowLatency, err := meter.Float64Histogram("flowpipe.flow.latency_ms",
		metric.WithDescription("Flow run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		stepExecutions: stepExecutions,
		stepLatency:    stepLatency,
		stepErrors:     stepErrors,
		stepRetries:    stepRetries,
		flowRuns:       flowRuns,
		flowLatency:    flowLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by OpenTelemetry.
// If metric initialization fails, it returns a no-op recorder.
//
// The recorder uses the global OTel meter provider; configure it before
// calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStepExecution records one step attempt.
func (m *otelMetrics) RecordStepExecution(ctx context.Context, stepID, status string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("step_id", stepID),
		attribute.String("status", status),
	}

	m.stepExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if status == "failed" || status == "timeout" {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("step_id", stepID)))
	}
}

// RecordStepRetry records a retry.
func (m *otelMetrics) RecordStepRetry(ctx context.Context, stepID string) {
	m.stepRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("step_id", stepID)))
}

// RecordFlowRun records a flow run.
func (m *otelMetrics) RecordFlowRun(ctx context.Context, flowID string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("flow_id", flowID),
		attribute.Bool("success", success),
	}
	m.flowRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.flowLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
