// Package observability provides structured logging, metrics, and tracing
// for flow execution.
//
// Logging uses slog from the standard library; metrics and tracing use
// OpenTelemetry. Metrics and tracing are opt-in and fall back to no-op
// implementations when disabled, so the executor can call them
// unconditionally.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger carrying flow execution context.
// Every step-level log line includes run_id, flow_id, step_id, and attempt.
func EnrichLogger(logger *slog.Logger, runID, flowID, stepID string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("flow_id", flowID),
		slog.String("step_id", stepID),
		slog.Int("attempt", attempt),
	)
}

// LogFlowStart logs the start of a flow run.
func LogFlowStart(logger *slog.Logger, runID, flowID string) {
	if logger == nil {
		return
	}
	logger.Info("flow run starting",
		slog.String("run_id", runID),
		slog.String("flow_id", flowID),
	)
}

// LogFlowComplete logs successful flow completion.
func LogFlowComplete(logger *slog.Logger, runID, flowID string, durationMs float64, stepCount int) {
	if logger == nil {
		return
	}
	logger.Info("flow run completed",
		slog.String("run_id", runID),
		slog.String("flow_id", flowID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps_executed", stepCount),
	)
}

// LogFlowError logs a flow run that aborted.
func LogFlowError(logger *slog.Logger, runID, flowID string, err error, durationMs float64, lastStep string) {
	if logger == nil {
		return
	}
	logger.Error("flow run failed",
		slog.String("run_id", runID),
		slog.String("flow_id", flowID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_step", lastStep),
	)
}

// LogStepStart logs step execution start.
func LogStepStart(logger *slog.Logger, stepID, agent string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("step_id", stepID),
		slog.String("agent", agent),
	)
}

// LogStepComplete logs successful step completion.
func LogStepComplete(logger *slog.Logger, stepID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("step_id", stepID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStepSkipped logs a step whose condition evaluated false.
func LogStepSkipped(logger *slog.Logger, stepID, condition string) {
	if logger == nil {
		return
	}
	logger.Debug("step skipped",
		slog.String("step_id", stepID),
		slog.String("condition", condition),
	)
}

// LogStepError logs a step failure or timeout.
func LogStepError(logger *slog.Logger, stepID string, err error, critical bool) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("step_id", stepID),
		slog.String("error", err.Error()),
		slog.Bool("critical", critical),
	)
}

// LogRetry logs a retry of a critical step.
func LogRetry(logger *slog.Logger, stepID string, attempt, maxRetries int) {
	if logger == nil {
		return
	}
	logger.Warn("retrying step",
		slog.String("step_id", stepID),
		slog.Int("attempt", attempt),
		slog.Int("max_retries", maxRetries),
	)
}

// LogFallback logs a fallback flow being invoked for an exhausted step.
func LogFallback(logger *slog.Logger, stepID, fallbackFlow string) {
	if logger == nil {
		return
	}
	logger.Warn("executing fallback flow",
		slog.String("step_id", stepID),
		slog.String("fallback_flow", fallbackFlow),
	)
}

// LogRecovery logs the on_fail recovery agent being invoked.
func LogRecovery(logger *slog.Logger, stepID, agent string) {
	if logger == nil {
		return
	}
	logger.Warn("invoking recovery agent",
		slog.String("step_id", stepID),
		slog.String("agent", agent),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports elapsed milliseconds when called.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
