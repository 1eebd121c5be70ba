package flowpipe

import "time"

// FlowResult is the immutable summary of one flow execution, derived from
// the final execution context. The caller uses it to decide whether to
// surface partial output or a hard failure.
type FlowResult struct {
	// FlowID is the executed flow.
	FlowID string
	// RunID is the execution identifier.
	RunID string
	// TotalTime is the summed duration of all logged attempts.
	TotalTime time.Duration
	// Steps is the full execution log.
	Steps []StepRecord
	// Errors lists every recorded failure, recovered or not.
	Errors []string

	snapshot map[string]any
}

// newFlowResult captures the context's final state.
func newFlowResult(flow *FlowDefinition, fc *Context) *FlowResult {
	return &FlowResult{
		FlowID:    flow.FlowID,
		RunID:     fc.RunID(),
		TotalTime: fc.TotalTime(),
		Steps:     fc.Steps(),
		Errors:    fc.Errors(),
		snapshot:  fc.Snapshot(),
	}
}

// HasErrors reports whether any failure occurred during the run,
// independent of whether the flow ultimately aborted.
func (r *FlowResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Output returns the named key from the final context snapshot.
func (r *FlowResult) Output(key string) (any, bool) {
	v, ok := r.snapshot[key]
	return v, ok
}

// Snapshot returns the final context value map. Callers must not modify it.
func (r *FlowResult) Snapshot() map[string]any {
	return r.snapshot
}

// StepsFor returns the log entries for one step id, in attempt order.
func (r *FlowResult) StepsFor(stepID string) []StepRecord {
	var out []StepRecord
	for _, rec := range r.Steps {
		if rec.StepID == stepID {
			out = append(out, rec)
		}
	}
	return out
}
