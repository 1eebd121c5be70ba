package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/RichLycus/flowpipe/pkg/flowpipe"
)

func noopAgents(names ...string) *flowpipe.AgentRegistry {
	agents := flowpipe.NewAgentRegistry()
	for _, name := range names {
		agents.RegisterFunc(name, func(ctx context.Context, fc *flowpipe.Context) error {
			return nil
		})
	}
	return agents
}

func benchExecutor() *flowpipe.Executor {
	return flowpipe.NewExecutor(
		flowpipe.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func sequentialFlow(steps int) *flowpipe.FlowDefinition {
	flow := &flowpipe.FlowDefinition{FlowID: "bench_sequential"}
	for i := 0; i < steps; i++ {
		flow.Steps = append(flow.Steps, flowpipe.StepConfig{
			ID:      stepID(i),
			Agent:   "worker",
			Timeout: 30,
		})
	}
	return flow
}

func stepID(i int) string {
	return "step_" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}

// BenchmarkExecute_SingleStep measures per-run overhead of the engine.
func BenchmarkExecute_SingleStep(b *testing.B) {
	flow := sequentialFlow(1)
	if err := flow.Validate(); err != nil {
		b.Fatal(err)
	}
	exec := benchExecutor()
	agents := noopAgents("worker")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc := flowpipe.NewContext(nil)
		if _, err := exec.Execute(context.Background(), flow, fc, agents); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecute_TenSteps measures a realistic sequential pipeline.
func BenchmarkExecute_TenSteps(b *testing.B) {
	flow := sequentialFlow(10)
	if err := flow.Validate(); err != nil {
		b.Fatal(err)
	}
	exec := benchExecutor()
	agents := noopAgents("worker")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc := flowpipe.NewContext(nil)
		if _, err := exec.Execute(context.Background(), flow, fc, agents); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecute_ParallelGroup measures fan-out dispatch overhead.
func BenchmarkExecute_ParallelGroup(b *testing.B) {
	flow := &flowpipe.FlowDefinition{
		FlowID: "bench_parallel",
		Steps: []flowpipe.StepConfig{
			{ID: "p1", Agent: "worker", Timeout: 30},
			{ID: "p2", Agent: "worker", Timeout: 30},
			{ID: "p3", Agent: "worker", Timeout: 30},
			{ID: "p4", Agent: "worker", Timeout: 30},
		},
		Optimization: flowpipe.OptimizationConfig{
			EnableParallel: true,
			ParallelGroups: [][]string{{"p1", "p2", "p3", "p4"}},
		},
	}
	if err := flow.Validate(); err != nil {
		b.Fatal(err)
	}
	exec := benchExecutor()
	agents := noopAgents("worker")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc := flowpipe.NewContext(nil)
		if _, err := exec.Execute(context.Background(), flow, fc, agents); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecute_ConditionalSkips measures condition evaluation cost when
// every step is skipped.
func BenchmarkExecute_ConditionalSkips(b *testing.B) {
	flow := sequentialFlow(10)
	for i := range flow.Steps {
		flow.Steps[i].Condition = "_config_enabled"
	}
	if err := flow.Validate(); err != nil {
		b.Fatal(err)
	}
	exec := benchExecutor()
	agents := noopAgents("worker")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		fc := flowpipe.NewContext(nil)
		if _, err := exec.Execute(context.Background(), flow, fc, agents); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkParseFlowDefinition measures load-time parsing and validation.
func BenchmarkParseFlowDefinition(b *testing.B) {
	doc := []byte(`
flow_id: bench_flow
name: Benchmark Flow
version: "1.0"
config:
  enable_cache: true
steps:
  - id: classify
    agent: classifier
    timeout: 5
    critical: true
  - id: fetch_cache
    agent: cache_agent
    timeout: 5
    condition: _config_enable_cache
  - id: generate
    agent: generator
    timeout: 30
    critical: true
error_handling:
  max_retries: 2
  fallback_flows: [simple_chat]
`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := flowpipe.ParseFlowDefinition(doc); err != nil {
			b.Fatal(err)
		}
	}
}
