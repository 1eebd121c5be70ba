// Package registry provides a generic thread-safe lookup table.
//
// The engine uses it for the agent registry (name -> Agent) and the flow
// loader's definition cache ((mode, name) -> *FlowDefinition). It is exported
// because callers construct and own agent registries themselves.
package registry
