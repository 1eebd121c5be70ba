package flowpipe

import (
	"context"
	"sync"
)

// runGroup executes the members of a parallel group concurrently and
// waits for all of them. Members record their results into the shared
// context through its own locking; no partial-order guarantee is made
// between members.
//
// Abort decisions are deferred until the whole group has finished, so a
// fast critical failure never strands a slower sibling mid-flight. When
// several members abort, the first in declaration order wins.
func (e *Executor) runGroup(ctx context.Context, flow *FlowDefinition, steps []*StepConfig, fc *Context, agents *AgentRegistry) stepOutcome {
	outcomes := make([]stepOutcome, len(steps))

	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Add(1)
		go func(i int, step *StepConfig) {
			defer wg.Done()
			outcomes[i] = e.runStep(ctx, flow, step, fc, agents, true)
		}(i, step)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome.abortErr != nil {
			return outcome
		}
	}
	return stepOutcome{}
}
