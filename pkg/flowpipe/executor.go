package flowpipe

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/RichLycus/flowpipe/pkg/flowpipe/observability"
)

// stepOutcome is the result of running one plan unit.
type stepOutcome struct {
	// abortErr is non-nil when an unrecovered critical failure must stop
	// the flow.
	abortErr error
}

// Execute runs a flow against an execution context and agent registry,
// returning the result summary. The returned error is non-nil only when
// the flow aborted (an unrecovered critical failure or cancellation); a
// result is returned in either case so partial output stays observable.
//
// Sequential steps run in declaration order. When the flow enables
// parallel execution, steps belonging to a parallel group are dispatched
// concurrently at the group's first declared position, and the plan does
// not advance until every member has finished or timed out.
func (e *Executor) Execute(ctx context.Context, flow *FlowDefinition, fc *Context, agents *AgentRegistry) (result *FlowResult, runErr error) {
	if flow == nil {
		return nil, ErrNilFlow
	}
	if fc == nil {
		return nil, ErrNilContext
	}
	if agents == nil {
		return nil, ErrNilRegistry
	}

	e.seedConfigFlags(flow, fc)

	start := time.Now()
	observability.LogFlowStart(e.logger, fc.RunID(), flow.FlowID)

	runCtx, flowSpan := e.spans.StartFlowSpan(ctx, flow.FlowID, fc.RunID())
	defer func() {
		e.spans.EndSpanWithError(flowSpan, runErr)
	}()

	runErr = e.runPlan(runCtx, flow, fc, agents)

	duration := time.Since(start)
	e.metrics.RecordFlowRun(ctx, flow.FlowID, runErr == nil, duration)

	result = newFlowResult(flow, fc)
	if runErr != nil {
		lastStep := ""
		var aborted *FlowAbortedError
		if errors.As(runErr, &aborted) {
			lastStep = aborted.StepID
		}
		observability.LogFlowError(e.logger, fc.RunID(), flow.FlowID, runErr, float64(duration.Milliseconds()), lastStep)
	} else {
		observability.LogFlowComplete(e.logger, fc.RunID(), flow.FlowID, float64(duration.Milliseconds()), len(result.Steps))
	}

	return result, runErr
}

// seedConfigFlags copies flow-level config flags into the context's
// reserved namespace so step conditions can query them. Flags the caller
// already set (e.g. via SetConfig) win over flow defaults.
func (e *Executor) seedConfigFlags(flow *FlowDefinition, fc *Context) {
	for k, v := range flow.Settings().Flags() {
		key := ConfigPrefix + k
		if !fc.Has(key) {
			fc.Set(key, v)
		}
	}
}

// runPlan walks the execution plan unit by unit.
func (e *Executor) runPlan(ctx context.Context, flow *FlowDefinition, fc *Context, agents *AgentRegistry) error {
	for _, unit := range buildPlan(flow) {
		select {
		case <-ctx.Done():
			err := &FlowAbortedError{FlowID: flow.FlowID, StepID: unit.steps[0].ID, Err: ctx.Err()}
			fc.RecordError(err.Error())
			return err
		default:
		}

		var outcome stepOutcome
		if len(unit.steps) == 1 {
			outcome = e.runStep(ctx, flow, unit.steps[0], fc, agents, false)
		} else {
			outcome = e.runGroup(ctx, flow, unit.steps, fc, agents)
		}

		if outcome.abortErr != nil {
			return outcome.abortErr
		}
	}
	return nil
}

// planUnit is one schedulable unit: a single step, or a parallel group.
type planUnit struct {
	steps []*StepConfig
}

// buildPlan partitions the flow's steps into plan units in declaration
// order. A parallel group occupies the position of its first declared
// member; members keep declaration order within the group.
func buildPlan(flow *FlowDefinition) []planUnit {
	groupOf := make(map[string]int)
	if flow.Optimization.EnableParallel {
		for gi, group := range flow.Optimization.ParallelGroups {
			for _, id := range group {
				groupOf[id] = gi
			}
		}
	}

	var plan []planUnit
	emitted := make(map[int]bool)
	grouped := make(map[int][]*StepConfig)

	for i := range flow.Steps {
		step := &flow.Steps[i]
		gi, inGroup := groupOf[step.ID]
		if !inGroup {
			plan = append(plan, planUnit{steps: []*StepConfig{step}})
			continue
		}
		grouped[gi] = append(grouped[gi], step)
	}

	// Second pass places each group at its first member's position.
	if len(grouped) > 0 {
		plan = plan[:0]
		for i := range flow.Steps {
			step := &flow.Steps[i]
			gi, inGroup := groupOf[step.ID]
			if !inGroup {
				plan = append(plan, planUnit{steps: []*StepConfig{step}})
				continue
			}
			if !emitted[gi] {
				emitted[gi] = true
				plan = append(plan, planUnit{steps: grouped[gi]})
			}
		}
	}

	return plan
}

// runStep executes one step with condition, timeout, retry, fallback, and
// recovery handling. inGroup marks parallel group members, which are not
// eligible for adaptive timeout extension.
func (e *Executor) runStep(ctx context.Context, flow *FlowDefinition, step *StepConfig, fc *Context, agents *AgentRegistry, inGroup bool) stepOutcome {
	if !step.ShouldExecute(fc) {
		fc.RecordStep(StepRecord{
			StepID:  step.ID,
			Agent:   step.Agent,
			Status:  StatusSkipped,
			Attempt: 1,
		})
		observability.LogStepSkipped(e.logger, step.ID, step.Condition)
		e.metrics.RecordStepExecution(ctx, step.ID, string(StatusSkipped), 0)
		return stepOutcome{}
	}

	agent, err := agents.Resolve(step.Agent)
	if err != nil {
		// No agent to run: critical regardless of the step's own flag.
		notFound := &AgentNotFoundError{StepID: step.ID, Agent: step.Agent}
		fc.RecordStep(StepRecord{
			StepID:  step.ID,
			Agent:   step.Agent,
			Status:  StatusFailed,
			Attempt: 1,
			Err:     notFound.Error(),
		})
		fc.RecordError(notFound.Error())
		observability.LogStepError(e.logger, step.ID, notFound, true)
		e.metrics.RecordStepExecution(ctx, step.ID, string(StatusFailed), 0)
		return stepOutcome{abortErr: &FlowAbortedError{FlowID: flow.FlowID, StepID: step.ID, Err: notFound}}
	}

	stepCtx, stepSpan := e.spans.StartStepSpan(ctx, step.ID, step.Agent)

	finalErr := e.runAttempts(stepCtx, flow, step, agent, fc, inGroup)
	e.spans.EndSpanWithError(stepSpan, finalErr)

	if finalErr == nil {
		return stepOutcome{}
	}
	if !step.Critical {
		// Non-critical failures degrade gracefully; later steps still run.
		return stepOutcome{}
	}
	return e.recoverStep(stepCtx, flow, step, fc, agents, finalErr)
}

// runAttempts invokes the agent, retrying per the flow's error handling
// policy. Each attempt is logged separately. Returns nil on success or the
// final failure once the retry budget is spent.
func (e *Executor) runAttempts(ctx context.Context, flow *FlowDefinition, step *StepConfig, agent Agent, fc *Context, inGroup bool) error {
	policy := flow.ErrorHandling

	for attempt := 1; ; attempt++ {
		observability.LogStepStart(e.logger, step.ID, step.Agent)

		start := time.Now()
		err := e.invokeAgent(ctx, flow, step, agent, fc, inGroup)
		duration := time.Since(start)

		status := StatusSuccess
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			if errors.Is(err, ErrStepTimeout) {
				status = StatusTimeout
			} else {
				status = StatusFailed
			}
		}

		fc.RecordStep(StepRecord{
			StepID:   step.ID,
			Agent:    step.Agent,
			Status:   status,
			Duration: duration,
			Attempt:  attempt,
			Err:      errMsg,
		})
		e.metrics.RecordStepExecution(ctx, step.ID, string(status), duration)

		if err == nil {
			observability.LogStepComplete(e.logger, step.ID, float64(duration.Milliseconds()))
			return nil
		}

		fc.RecordError(errMsg)
		observability.LogStepError(e.logger, step.ID, err, step.Critical)

		if !step.Critical {
			return err
		}

		// Timeouts and agent errors share one retry budget; timeouts are
		// additionally gated by retry_on_timeout.
		retryable := attempt <= policy.MaxRetries
		if errors.Is(err, ErrStepTimeout) && !policy.RetryOnTimeout {
			retryable = false
		}
		if !retryable {
			return err
		}

		observability.LogRetry(e.logger, step.ID, attempt+1, policy.MaxRetries)
		e.metrics.RecordStepRetry(ctx, step.ID)
	}
}

// invokeAgent runs the agent bounded by the step timeout. The agent
// receives a context carrying the deadline; on expiry its work is
// abandoned (cancellation is best-effort via the context) and the step is
// treated as timed out.
func (e *Executor) invokeAgent(ctx context.Context, flow *FlowDefinition, step *StepConfig, agent Agent, fc *Context, inGroup bool) error {
	timeout := step.TimeoutDuration()
	if flow.Optimization.AdaptiveTimeout && !inGroup {
		// Sequential steps have the run to themselves; give them headroom.
		timeout += timeout / 2
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &StepPanicError{StepID: step.ID, Value: r, Stack: string(debug.Stack())}
			}
		}()
		done <- agent.Run(runCtx, fc)
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		var panicked *StepPanicError
		if errors.As(err, &panicked) {
			return err
		}
		// An agent surfacing the expired deadline is still a step timeout.
		if errors.Is(err, context.DeadlineExceeded) && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &StepTimeoutError{StepID: step.ID, Agent: step.Agent, Timeout: timeout}
		}
		return &StepExecutionError{StepID: step.ID, Agent: step.Agent, Err: err}
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &StepTimeoutError{StepID: step.ID, Agent: step.Agent, Timeout: timeout}
		}
		// Parent cancellation, not a step timeout.
		return &StepExecutionError{StepID: step.ID, Agent: step.Agent, Err: runCtx.Err()}
	}
}

// recoverStep walks the remaining recovery chain for an exhausted critical
// step: fallback flows first, then the on_fail recovery agent, then abort.
func (e *Executor) recoverStep(ctx context.Context, flow *FlowDefinition, step *StepConfig, fc *Context, agents *AgentRegistry, cause error) stepOutcome {
	policy := flow.ErrorHandling

	if len(policy.FallbackFlows) > 0 && e.loader != nil {
		for _, name := range policy.FallbackFlows {
			observability.LogFallback(e.logger, step.ID, name)

			fallback, err := e.loader.Load(flow.Mode, name)
			if err != nil {
				fc.RecordError(err.Error())
				continue
			}

			// The fallback runs against the same context so its outputs
			// land where the caller expects them. Only when it aborts is
			// the next fallback tried.
			if _, err := e.Execute(ctx, fallback, fc, agents); err == nil {
				return stepOutcome{}
			}
		}
	}

	if policy.OnFail != nil && policy.OnFail.Agent != "" {
		observability.LogRecovery(e.logger, step.ID, policy.OnFail.Agent)

		recovery, err := agents.Resolve(policy.OnFail.Agent)
		if err != nil {
			fc.RecordError(err.Error())
		} else {
			start := time.Now()
			runErr := e.invokeAgent(ctx, flow, step, recovery, fc, false)
			duration := time.Since(start)

			status := StatusSuccess
			errMsg := ""
			if runErr != nil {
				errMsg = runErr.Error()
				status = StatusFailed
				if errors.Is(runErr, ErrStepTimeout) {
					status = StatusTimeout
				}
			}
			fc.RecordStep(StepRecord{
				StepID:   step.ID,
				Agent:    policy.OnFail.Agent,
				Status:   status,
				Duration: duration,
				Attempt:  1,
				Err:      errMsg,
			})
			e.metrics.RecordStepExecution(ctx, step.ID, string(status), duration)

			if runErr == nil {
				return stepOutcome{}
			}
			fc.RecordError(errMsg)
		}
	}

	return stepOutcome{abortErr: &FlowAbortedError{FlowID: flow.FlowID, StepID: step.ID, Err: cause}}
}
