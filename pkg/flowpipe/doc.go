/*
Package flowpipe executes declarative multi-step pipelines ("flows")
against a registry of named agents.

# Overview

A flow is a versioned YAML (or JSON) document declaring an ordered list
of steps, each bound to an agent name, with per-step timeouts, optional
conditions, criticality flags, a shared retry policy, fallback flows,
and optional parallel groups. The engine walks the flow, resolves each
step's agent through an explicit registry, and records every attempt in
an execution log carried by a shared per-run context.

The package separates four concerns:

  - FlowDefinition: the validated, immutable pipeline declaration
  - Loader: parses and caches definitions by (mode, name) from a Source
  - AgentRegistry: caller-owned mapping of agent names to implementations
  - Executor: runs a flow against a Context and returns a FlowResult

# Basic Usage

	agents := flowpipe.NewAgentRegistry()
	agents.RegisterFunc("greeter", func(ctx context.Context, fc *flowpipe.Context) error {
	    msg, _ := fc.Lookup("message")
	    fc.Set("reply", fmt.Sprintf("hello, %v", msg))
	    return nil
	})

	loader := flowpipe.NewLoader(source.NewDirSource("flows"))
	flow, err := loader.Load("flash", "chat_flow")
	if err != nil {
	    log.Fatal(err)
	}

	exec := flowpipe.NewExecutor(flowpipe.WithLoader(loader))
	fc := flowpipe.NewContext(map[string]any{"message": "world"})
	result, err := exec.Execute(context.Background(), flow, fc, agents)
	if err != nil {
	    log.Fatal(err)
	}
	reply, _ := result.Output("reply")
	fmt.Println(reply)

# Conditions

A step may declare a condition over context state, typically a config
flag in the reserved "_config_" namespace:

	- id: fetch_cache
	  agent: cache_agent
	  timeout: 5
	  condition: _config_enable_cache

Conditions are parsed at load time; see ParseCondition for the grammar.
A false condition skips the step and logs it with zero duration.

# Failure Semantics

A non-critical step that fails is recorded and the flow continues. A
critical step that fails consumes the flow's shared retry budget, then
falls back through the flow's fallback_flows in order, then invokes the
on_fail recovery agent, and only aborts the flow once all of those are
exhausted. Every failure is recorded in the result's error list even
when later recovered.

# Parallel Groups

When optimization.enable_parallel is set, steps named in a parallel
group run concurrently at the position of the group's first declared
member. The flow does not advance until every member has finished;
abort decisions are deferred to the end of the group.

# Observability

Logging uses log/slog. Metrics and tracing are OpenTelemetry-based,
opt-in via WithMetrics and WithTracing, and use the global providers.
*/
package flowpipe
