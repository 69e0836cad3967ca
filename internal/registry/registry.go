// Package registry implements the process-wide node-type registry
// (spec.md §4.B): a map from node type to its NodeSpec plus an optional
// Executor. Structural loop types are registered with a spec and a nil
// executor so they still appear in catalogs and validation.
package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/citadel-agent/flowgraph/internal/types"
)

// Registry is an RWMutex-guarded pair of maps, mirroring the teacher's
// NodeTypeRegistryImpl (workflow/core/engine/registry.go): exclusive
// locking on writes, shared locking on reads, with an explicit Snapshot
// for execution-time isolation from concurrent registry mutation.
type Registry struct {
	mu        sync.RWMutex
	specs     map[string]types.NodeSpec
	executors map[string]types.Executor
	log       zerolog.Logger
}

// New creates an empty registry. A no-op logger is used if log is the
// zero value; pass a real logger to observe duplicate-registration
// warnings.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		specs:     make(map[string]types.NodeSpec),
		executors: make(map[string]types.Executor),
		log:       log,
	}
}

// Register inserts spec and, if non-nil, executor under spec.Type.
// Registering an already-present type overwrites it and emits a
// non-fatal duplicate-registration warning through the logger, per
// spec.md §4.B (never an error — the driver/validator treat registration
// as always succeeding).
func (r *Registry) Register(spec types.NodeSpec, executor types.Executor) {
	spec = normalizePorts(spec)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Type]; exists {
		r.log.Warn().Str("node_type", spec.Type).Msg("overwriting duplicate node type registration")
	}

	r.specs[spec.Type] = spec
	if executor != nil {
		r.executors[spec.Type] = executor
	} else {
		delete(r.executors, spec.Type)
	}
}

// normalizePorts applies the required/default normalization rule from
// spec.md §4.B to every port of a spec before it is stored.
func normalizePorts(spec types.NodeSpec) types.NodeSpec {
	inputs := make([]types.PortSpec, len(spec.Inputs))
	for i, p := range spec.Inputs {
		p.Required = p.NormalizedRequired()
		inputs[i] = p
	}
	spec.Inputs = inputs

	outputs := make([]types.PortSpec, len(spec.Outputs))
	for i, p := range spec.Outputs {
		p.Required = p.NormalizedRequired()
		outputs[i] = p
	}
	spec.Outputs = outputs
	return spec
}

// Unregister removes type from both maps. Silent on miss, per spec.md.
func (r *Registry) Unregister(nodeType string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.specs, nodeType)
	delete(r.executors, nodeType)
}

// Spec returns the NodeSpec for a type, if registered.
func (r *Registry) Spec(nodeType string) (types.NodeSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.specs[nodeType]
	return s, ok
}

// Executor returns the Executor for a type, if one is registered (a
// structural loop type has a Spec but no Executor).
func (r *Registry) Executor(nodeType string) (types.Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[nodeType]
	return e, ok
}

// Has reports whether a spec is registered for the type.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.specs[nodeType]
	return ok
}

// TypeSet returns the set of registered node types. Plugin discovery
// does not diff it: Manager.load takes a plugin's types from the specs
// the plugin reports.
func (r *Registry) TypeSet() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, len(r.specs))
	for t := range r.specs {
		out[t] = struct{}{}
	}
	return out
}

// Snapshot is an immutable copy of both maps, safe to read without
// holding the registry's lock — used by a running Engine so that
// concurrent plugin lifecycle operations never observe a torn read.
type Snapshot struct {
	specs     map[string]types.NodeSpec
	executors map[string]types.Executor
}

// Spec looks up a type in the snapshot.
func (s Snapshot) Spec(nodeType string) (types.NodeSpec, bool) {
	v, ok := s.specs[nodeType]
	return v, ok
}

// Executor looks up a type's executor in the snapshot.
func (s Snapshot) Executor(nodeType string) (types.Executor, bool) {
	v, ok := s.executors[nodeType]
	return v, ok
}

// Has reports whether nodeType has a spec in the snapshot.
func (s Snapshot) Has(nodeType string) bool {
	_, ok := s.specs[nodeType]
	return ok
}

// Snapshot copies both maps under a read lock.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make(map[string]types.NodeSpec, len(r.specs))
	for k, v := range r.specs {
		specs[k] = v
	}
	executors := make(map[string]types.Executor, len(r.executors))
	for k, v := range r.executors {
		executors[k] = v
	}
	return Snapshot{specs: specs, executors: executors}
}

// Clear removes every registered type. Used by plugin deactivation's
// clear-and-reload strategy (spec.md §4.D/§9).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = make(map[string]types.NodeSpec)
	r.executors = make(map[string]types.Executor)
}

// All returns every registered NodeSpec, for catalog listings.
func (r *Registry) All() []types.NodeSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.NodeSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	return out
}
