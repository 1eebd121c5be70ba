package flowpipe

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConfigPrefix is the reserved key namespace separating pipeline control
// flags from request data in the context's flat value map. Step conditions
// typically query keys in this namespace.
const ConfigPrefix = "_config_"

// StepStatus is the recorded outcome of one step attempt.
type StepStatus string

// Step attempt outcomes.
const (
	StatusSuccess StepStatus = "success"
	StatusSkipped StepStatus = "skipped"
	StatusFailed  StepStatus = "failed"
	StatusTimeout StepStatus = "timeout"
)

// StepRecord is one entry in the execution log. Retried steps produce one
// record per attempt so the log reflects real cost.
type StepRecord struct {
	// StepID is the step this attempt belongs to.
	StepID string
	// Agent is the agent that ran (or would have run, for skips).
	Agent string
	// Status is the attempt outcome.
	Status StepStatus
	// Duration is the wall-clock time of this attempt. Zero for skips.
	Duration time.Duration
	// Attempt is 1 for the first attempt, incremented per retry.
	Attempt int
	// Err is the failure message, empty on success and skip.
	Err string
}

// Context is the mutable per-run state shared by the steps of one flow
// execution. It carries request input, intermediate agent outputs, pipeline
// control flags, and run metadata (step log, error list) in one place.
//
// A Context is owned by exactly one execution and must not be reused across
// runs. It is internally locked so the members of a parallel group can
// record results concurrently; agents writing state must still keep to
// their own output keys, since last-write-wins is all the lock guarantees.
type Context struct {
	mu     sync.Mutex
	runID  string
	values map[string]any
	steps  []StepRecord
	errs   []string
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithRunID sets the run identifier. Defaults to a generated UUID.
func WithRunID(id string) ContextOption {
	return func(c *Context) {
		c.runID = id
	}
}

// NewContext creates an execution context seeded with the request input
// (e.g. the user message). The input map is copied.
func NewContext(input map[string]any, opts ...ContextOption) *Context {
	c := &Context{
		runID:  uuid.New().String(),
		values: make(map[string]any, len(input)),
	}
	for k, v := range input {
		c.values[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunID returns the unique identifier for this execution.
func (c *Context) RunID() string {
	return c.runID
}

// Get returns the value for key, or defaultVal when absent.
func (c *Context) Get(key string, defaultVal any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return defaultVal
}

// Lookup returns the value for key and whether it exists.
func (c *Context) Lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key exists.
func (c *Context) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Set stores a value. Agents use this to publish their outputs.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// SetConfig stores a pipeline control flag under the reserved config
// namespace, overriding the flow-level default for this run. Conditions
// evaluate flags by their namespaced key (ConfigPrefix + key).
func (c *Context) SetConfig(key string, value any) {
	c.Set(ConfigPrefix+key, value)
}

// RecordStep appends one attempt to the execution log.
func (c *Context) RecordStep(rec StepRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, rec)
}

// RecordError appends a failure message to the error list. Every failure is
// recorded, including ones later recovered by retry or fallback.
func (c *Context) RecordError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, msg)
}

// Steps returns a copy of the execution log in record order.
func (c *Context) Steps() []StepRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]StepRecord, len(c.steps))
	copy(out, c.steps)
	return out
}

// Errors returns a copy of the error list.
func (c *Context) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.errs))
	copy(out, c.errs)
	return out
}

// HasErrors reports whether any failure was recorded during the run.
func (c *Context) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) > 0
}

// TotalTime returns the summed duration of all recorded attempts. Skipped
// steps contribute zero, and parallel members each contribute their own
// duration, so the total is deterministic per log rather than a process
// wall-clock reading.
func (c *Context) TotalTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, rec := range c.steps {
		total += rec.Duration
	}
	return total
}

// Snapshot returns a copy of the current value map.
func (c *Context) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
