package flowpipe

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for definition validation.
var (
	// ErrMissingFlowID indicates a definition without a flow_id.
	ErrMissingFlowID = errors.New("flow_id is required")

	// ErrEmptySteps indicates a definition with no steps.
	ErrEmptySteps = errors.New("flow has no steps")

	// ErrDuplicateStepID indicates two steps sharing an id.
	ErrDuplicateStepID = errors.New("duplicate step id")

	// ErrMissingAgent indicates a step without an agent name.
	ErrMissingAgent = errors.New("step has no agent")

	// ErrDanglingReference indicates an on_success or parallel-group entry
	// naming a step id that does not exist in the flow.
	ErrDanglingReference = errors.New("reference to unknown step id")

	// ErrInvalidTimeout indicates a non-positive step timeout.
	ErrInvalidTimeout = errors.New("step timeout must be positive")

	// ErrInvalidRetryBound indicates a negative max_retries.
	ErrInvalidRetryBound = errors.New("max_retries must not be negative")

	// ErrInvalidCondition indicates a condition string that does not parse.
	ErrInvalidCondition = errors.New("invalid condition")
)

// Sentinel errors for execution.
var (
	// ErrNilContext indicates Execute was called with a nil execution context.
	ErrNilContext = errors.New("execution context cannot be nil")

	// ErrNilRegistry indicates Execute was called with a nil agent registry.
	ErrNilRegistry = errors.New("agent registry cannot be nil")

	// ErrNilFlow indicates Execute was called with a nil flow definition.
	ErrNilFlow = errors.New("flow definition cannot be nil")

	// ErrAgentNotFound indicates a step's agent is not in the registry.
	// This is always treated as a critical failure.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrStepTimeout indicates a step exceeded its timeout.
	ErrStepTimeout = errors.New("step timed out")
)

// ValidationError describes one structural problem in a flow definition.
// Validate() joins all violations, so callers can match individual
// sentinels with errors.Is even when several are present.
type ValidationError struct {
	// FlowID is the definition being validated (may be empty when the id
	// itself is the problem).
	FlowID string
	// Field names the offending field, e.g. "steps[2].timeout".
	Field string
	// Message is a human-readable description.
	Message string
	// Err is the matching sentinel.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.FlowID != "" {
		return fmt.Sprintf("flow %s: %s: %s", e.FlowID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AgentNotFoundError indicates a registry miss while resolving a step's agent.
type AgentNotFoundError struct {
	// StepID is the step whose agent could not be resolved.
	StepID string
	// Agent is the missing agent name.
	Agent string
}

// Error implements the error interface.
func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("step %s: agent not found: %s", e.StepID, e.Agent)
}

// Unwrap returns ErrAgentNotFound for errors.Is support.
func (e *AgentNotFoundError) Unwrap() error {
	return ErrAgentNotFound
}

// StepTimeoutError indicates a step ran past its timeout and was abandoned.
type StepTimeoutError struct {
	// StepID is the step that timed out.
	StepID string
	// Agent is the agent that was running.
	Agent string
	// Timeout is the limit that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %s: agent %s timed out after %s", e.StepID, e.Agent, e.Timeout)
}

// Unwrap returns ErrStepTimeout for errors.Is support.
func (e *StepTimeoutError) Unwrap() error {
	return ErrStepTimeout
}

// StepExecutionError wraps an error returned by an agent during a step.
type StepExecutionError struct {
	// StepID is the step that failed.
	StepID string
	// Agent is the agent that returned the error.
	Agent string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s: agent %s: %v", e.StepID, e.Agent, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepExecutionError) Unwrap() error {
	return e.Err
}

// StepPanicError captures a panic raised by an agent.
// Panics are recovered and handled like any other step failure.
type StepPanicError struct {
	// StepID is the step whose agent panicked.
	StepID string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %s: agent panicked: %v", e.StepID, e.Value)
}

// FlowAbortedError indicates a critical step failure that exhausted every
// recovery avenue (retries, fallback flows, recovery agent), aborting the
// flow before later steps could run.
type FlowAbortedError struct {
	// FlowID is the flow that aborted.
	FlowID string
	// StepID is the step whose failure caused the abort.
	StepID string
	// Err is the final failure after recovery was exhausted.
	Err error
}

// Error implements the error interface.
func (e *FlowAbortedError) Error() string {
	return fmt.Sprintf("flow %s aborted at step %s: %v", e.FlowID, e.StepID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FlowAbortedError) Unwrap() error {
	return e.Err
}
