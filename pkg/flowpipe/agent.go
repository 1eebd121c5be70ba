package flowpipe

import (
	"context"
	"fmt"
	"sort"

	"github.com/RichLycus/flowpipe/pkg/flowpipe/registry"
)

// Agent is the single-method contract for a callable processing unit.
// An agent reads its inputs from the execution context, does its work, and
// publishes outputs back with Set. The ctx carries the per-step deadline;
// long-running agents should honor cancellation so timeouts take effect
// promptly.
//
// An agent writes only to keys it owns. The engine does not arbitrate
// concurrent writes to the same key inside a parallel group; flows are
// designed so group members own disjoint output keys.
type Agent interface {
	Run(ctx context.Context, fc *Context) error
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, fc *Context) error

// Run implements Agent.
func (f AgentFunc) Run(ctx context.Context, fc *Context) error {
	return f(ctx, fc)
}

// AgentRegistry maps agent names to their implementations. The caller
// builds one at startup and passes it into the executor explicitly, so
// tests can substitute stub agents without shared process state.
type AgentRegistry struct {
	reg *registry.Registry[string, Agent]
}

// NewAgentRegistry creates an empty agent registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{reg: registry.New[string, Agent]()}
}

// Register adds or replaces an agent under the given name.
func (r *AgentRegistry) Register(name string, agent Agent) {
	r.reg.Register(name, agent)
}

// RegisterFunc adds a function-backed agent under the given name.
func (r *AgentRegistry) RegisterFunc(name string, fn AgentFunc) {
	r.reg.Register(name, fn)
}

// Resolve returns the agent for name. The error wraps ErrAgentNotFound on
// a registry miss.
func (r *AgentRegistry) Resolve(name string) (Agent, error) {
	agent, ok := r.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return agent, nil
}

// Has reports whether an agent is registered under name.
func (r *AgentRegistry) Has(name string) bool {
	return r.reg.Has(name)
}

// List returns all registered agent names, sorted.
func (r *AgentRegistry) List() []string {
	names := r.reg.Keys()
	sort.Strings(names)
	return names
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	return r.reg.Len()
}
