package flowpipe

import (
	"errors"
	"fmt"
	"time"

	"github.com/RichLycus/flowpipe/pkg/flowpipe/config"
)

// ExecutionProfile carries informational hardware constraints for the agents
// of a flow (target device class, memory ceiling, concurrency hints).
// The engine does not enforce these; agents read them through the context.
type ExecutionProfile struct {
	TargetDevice     string  `yaml:"target_device"`
	HardwareMode     string  `yaml:"hardware_mode"`
	MaxMemoryGB      float64 `yaml:"max_memory_gb"`
	ConcurrencyLimit int     `yaml:"concurrency_limit"`
	Precision        string  `yaml:"precision"`
}

// StepConfig declares one named unit of work bound to an agent.
type StepConfig struct {
	// ID is the step identifier, unique within the flow.
	ID string `yaml:"id"`
	// Agent names the callable resolved through the agent registry.
	Agent string `yaml:"agent"`
	// Description is human metadata.
	Description string `yaml:"description"`
	// Timeout bounds the step's execution, in seconds.
	Timeout float64 `yaml:"timeout"`
	// Critical marks failures of this step as fatal to the flow unless a
	// retry, fallback flow, or recovery agent recovers them.
	Critical bool `yaml:"critical"`
	// Condition optionally gates execution on context state.
	// See ParseCondition for the accepted forms.
	Condition string `yaml:"condition"`
	// OnSuccess is an informational next-step hint for sequential flows.
	OnSuccess string `yaml:"on_success"`

	// predicate is the parsed Condition, attached by Validate.
	predicate Predicate
}

// TimeoutDuration returns the step timeout as a time.Duration.
func (s *StepConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout * float64(time.Second))
}

// ShouldExecute evaluates the step's condition against current context
// state. Steps without a condition always execute.
func (s *StepConfig) ShouldExecute(fc *Context) bool {
	if s.Condition == "" {
		return true
	}
	p := s.predicate
	if p == nil {
		// Definitions that skipped Validate parse on the fly. The result
		// is not cached: definitions are shared across concurrent runs.
		parsed, err := ParseCondition(s.Condition)
		if err != nil {
			return true
		}
		p = parsed
	}
	return p.Evaluate(fc)
}

// RecoveryConfig names the last-resort agent invoked via on_fail.
type RecoveryConfig struct {
	Agent  string         `yaml:"agent"`
	Params map[string]any `yaml:"params"`
}

// ErrorHandlingConfig declares the recovery policy for critical failures.
type ErrorHandlingConfig struct {
	// RetryOnTimeout permits retrying steps that failed by timeout.
	// Agent errors share the same retry budget regardless of this flag.
	RetryOnTimeout bool `yaml:"retry_on_timeout"`
	// MaxRetries bounds retries per step (0 = no retries).
	MaxRetries int `yaml:"max_retries"`
	// FallbackFlows are flow identifiers tried in order once retries are
	// exhausted. Only the first is executed unless it itself aborts.
	FallbackFlows []string `yaml:"fallback_flows"`
	// OnFail optionally names a recovery agent invoked as a last resort.
	OnFail *RecoveryConfig `yaml:"on_fail"`
}

// OptimizationConfig declares scheduling hints for the executor.
type OptimizationConfig struct {
	// EnableParallel activates parallel-group scheduling.
	EnableParallel bool `yaml:"enable_parallel"`
	// Priority is an opaque scheduling hint.
	Priority string `yaml:"priority"`
	// AdaptiveTimeout permits the executor to extend sequential step
	// timeouts under low contention.
	AdaptiveTimeout bool `yaml:"adaptive_timeout"`
	// ResourceAware is an informational hint consumed by agents.
	ResourceAware bool `yaml:"resource_aware"`
	// ParallelGroups lists sets of step ids with no mutual data
	// dependency, dispatched concurrently when EnableParallel is true.
	ParallelGroups [][]string `yaml:"parallel_groups"`
}

// FlowDefinition is the validated in-memory representation of a pipeline.
// It is immutable once loaded; one definition is shared by every run.
type FlowDefinition struct {
	FlowID      string `yaml:"flow_id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`

	Profile       ExecutionProfile    `yaml:"profile"`
	Config        map[string]any      `yaml:"config"`
	Steps         []StepConfig        `yaml:"steps"`
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling"`
	Optimization  OptimizationConfig  `yaml:"optimization"`

	// Mode is the loader key this definition was loaded under. The
	// executor uses it to resolve fallback flow identifiers.
	Mode string `yaml:"-"`
}

// Settings wraps the free-form config block with typed accessors.
func (f *FlowDefinition) Settings() config.Config {
	return config.New(f.Config)
}

// Step returns the step with the given id.
func (f *FlowDefinition) Step(id string) (*StepConfig, bool) {
	for i := range f.Steps {
		if f.Steps[i].ID == id {
			return &f.Steps[i], true
		}
	}
	return nil, false
}

// StepIDs returns the step identifiers in declaration order.
func (f *FlowDefinition) StepIDs() []string {
	ids := make([]string, len(f.Steps))
	for i := range f.Steps {
		ids[i] = f.Steps[i].ID
	}
	return ids
}

// Validate checks the structural invariants of the definition and parses
// every step condition. All violations are reported together via
// errors.Join. Fallback flow identifiers are intentionally not resolved
// here; they only need to be loadable at run time.
func (f *FlowDefinition) Validate() error {
	var errs []error

	fail := func(field, sentinelMsg string, sentinel error) {
		errs = append(errs, &ValidationError{
			FlowID:  f.FlowID,
			Field:   field,
			Message: sentinelMsg,
			Err:     sentinel,
		})
	}

	if f.FlowID == "" {
		fail("flow_id", "flow_id is required", ErrMissingFlowID)
	}
	if len(f.Steps) == 0 {
		fail("steps", "flow has no steps", ErrEmptySteps)
	}

	seen := make(map[string]bool, len(f.Steps))
	for i := range f.Steps {
		step := &f.Steps[i]
		field := fmt.Sprintf("steps[%d]", i)

		if step.ID == "" {
			fail(field+".id", "step has empty id", ErrDuplicateStepID)
			continue
		}
		if seen[step.ID] {
			fail(field+".id", fmt.Sprintf("duplicate step id: %s", step.ID), ErrDuplicateStepID)
		}
		seen[step.ID] = true

		if step.Agent == "" {
			fail(field+".agent", fmt.Sprintf("step %s has no agent", step.ID), ErrMissingAgent)
		}
		if step.Timeout <= 0 {
			fail(field+".timeout", fmt.Sprintf("step %s timeout %v is not positive", step.ID, step.Timeout), ErrInvalidTimeout)
		}
		if step.Condition != "" {
			p, err := ParseCondition(step.Condition)
			if err != nil {
				fail(field+".condition", err.Error(), ErrInvalidCondition)
			} else {
				step.predicate = p
			}
		}
	}

	for i := range f.Steps {
		step := &f.Steps[i]
		if step.OnSuccess != "" && !seen[step.OnSuccess] {
			fail(fmt.Sprintf("steps[%d].on_success", i),
				fmt.Sprintf("step %s on_success names unknown step: %s", step.ID, step.OnSuccess),
				ErrDanglingReference)
		}
	}

	for gi, group := range f.Optimization.ParallelGroups {
		for _, id := range group {
			if !seen[id] {
				fail(fmt.Sprintf("optimization.parallel_groups[%d]", gi),
					fmt.Sprintf("parallel group names unknown step: %s", id),
					ErrDanglingReference)
			}
		}
	}

	if f.ErrorHandling.MaxRetries < 0 {
		fail("error_handling.max_retries",
			fmt.Sprintf("max_retries %d is negative", f.ErrorHandling.MaxRetries),
			ErrInvalidRetryBound)
	}

	return errors.Join(errs...)
}
