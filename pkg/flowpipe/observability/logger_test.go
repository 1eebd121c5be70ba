package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records structured log output for assertions.
type captureHandler struct {
	buf   *bytes.Buffer
	attrs []slog.Attr
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{buf: &bytes.Buffer{}}
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, a := range h.attrs {
		data[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &captureHandler{buf: h.buf, attrs: merged}
}

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func (h *captureHandler) records() []map[string]any {
	var out []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	h := newCaptureHandler()
	logger := slog.New(h)

	enriched := EnrichLogger(logger, "run-1", "chat_flow", "parse", 2)
	enriched.Info("working")

	recs := h.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "run-1", recs[0]["run_id"])
	assert.Equal(t, "chat_flow", recs[0]["flow_id"])
	assert.Equal(t, "parse", recs[0]["step_id"])
	assert.Equal(t, float64(2), recs[0]["attempt"])
}

func TestEnrichLoggerNil(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "r", "f", "s", 1))
}

func TestFlowLogHelpers(t *testing.T) {
	h := newCaptureHandler()
	logger := slog.New(h)

	LogFlowStart(logger, "run-1", "chat_flow")
	LogFlowComplete(logger, "run-1", "chat_flow", 12.5, 3)
	LogFlowError(logger, "run-1", "chat_flow", errors.New("boom"), 3.0, "parse")

	recs := h.records()
	require.Len(t, recs, 3)
	assert.Equal(t, "flow run starting", recs[0]["msg"])
	assert.Equal(t, "flow run completed", recs[1]["msg"])
	assert.Equal(t, float64(3), recs[1]["steps_executed"])
	assert.Equal(t, "flow run failed", recs[2]["msg"])
	assert.Equal(t, "parse", recs[2]["last_step"])
}

func TestStepLogHelpers(t *testing.T) {
	h := newCaptureHandler()
	logger := slog.New(h)

	LogStepStart(logger, "parse", "parser_agent")
	LogStepComplete(logger, "parse", 1.2)
	LogStepSkipped(logger, "cache", "_config_enable_cache")
	LogStepError(logger, "parse", errors.New("bad input"), true)
	LogRetry(logger, "parse", 2, 3)
	LogFallback(logger, "parse", "minimal_flow")
	LogRecovery(logger, "parse", "default_responder")

	recs := h.records()
	require.Len(t, recs, 7)
	assert.Equal(t, "step starting", recs[0]["msg"])
	assert.Equal(t, "step skipped", recs[2]["msg"])
	assert.Equal(t, true, recs[3]["critical"])
	assert.Equal(t, "retrying step", recs[4]["msg"])
	assert.Equal(t, "minimal_flow", recs[5]["fallback_flow"])
	assert.Equal(t, "default_responder", recs[6]["agent"])
}

func TestLogHelpersNilLogger(t *testing.T) {
	// None of these should panic with a nil logger.
	LogFlowStart(nil, "r", "f")
	LogFlowComplete(nil, "r", "f", 0, 0)
	LogFlowError(nil, "r", "f", errors.New("x"), 0, "")
	LogStepStart(nil, "s", "a")
	LogStepComplete(nil, "s", 0)
	LogStepSkipped(nil, "s", "")
	LogStepError(nil, "s", errors.New("x"), false)
	LogRetry(nil, "s", 1, 1)
	LogFallback(nil, "s", "f")
	LogRecovery(nil, "s", "a")
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), float64(0))
}
