package flowpipe

import (
	"fmt"
	"sync"

	"github.com/RichLycus/flowpipe/pkg/flowpipe/registry"
	"github.com/RichLycus/flowpipe/pkg/flowpipe/source"
	"gopkg.in/yaml.v3"
)

// flowKey identifies a cached definition.
type flowKey struct {
	mode string
	name string
}

// Loader parses flow definitions from a source, validates them, and caches
// them by (mode, name). The cache is process-wide for the loader's lifetime
// and has no eviction: flow sets are small and finite, and cached
// definitions are immutable, so repeated lookups return the same value.
type Loader struct {
	src source.Source

	// loadMu serializes cache misses so a definition is read and parsed
	// at most once even under concurrent first requests.
	loadMu sync.Mutex
	cache  *registry.Registry[flowKey, *FlowDefinition]
}

// NewLoader creates a loader over the given definition source.
func NewLoader(src source.Source) *Loader {
	return &Loader{
		src:   src,
		cache: registry.New[flowKey, *FlowDefinition](),
	}
}

// Load returns the validated definition for (mode, name), reading and
// parsing it on first request. Parse and validation failures are not
// cached, so a corrected definition can be picked up after Invalidate.
func (l *Loader) Load(mode, name string) (*FlowDefinition, error) {
	key := flowKey{mode: mode, name: name}

	if flow, ok := l.cache.Get(key); ok {
		return flow, nil
	}

	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	if flow, ok := l.cache.Get(key); ok {
		return flow, nil
	}

	data, err := l.src.Read(mode, name)
	if err != nil {
		return nil, err
	}

	flow, err := ParseFlowDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("flow %s/%s: %w", mode, name, err)
	}
	flow.Mode = mode

	l.cache.Register(key, flow)
	return flow, nil
}

// List returns every definition reference the source knows about.
func (l *Loader) List() ([]source.Ref, error) {
	return l.src.List()
}

// Preload loads every listed definition, warming the cache. It stops at
// the first definition that fails to load.
func (l *Loader) Preload() error {
	refs, err := l.src.List()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if _, err := l.Load(ref.Mode, ref.Name); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the cached definition for (mode, name), forcing a
// re-read on next Load. Intended for tests and definition updates.
func (l *Loader) Invalidate(mode, name string) {
	l.cache.Delete(flowKey{mode: mode, name: name})
}

// ParseFlowDefinition parses and validates one definition document.
// YAML and JSON documents are both accepted (JSON is a YAML subset).
func ParseFlowDefinition(data []byte) (*FlowDefinition, error) {
	var flow FlowDefinition
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("parse flow definition: %w", err)
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	return &flow, nil
}
