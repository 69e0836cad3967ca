package types

import "context"

// PortSpec describes a single named port on a node.
type PortSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	// Default is nil when the port has no default. A non-nil Default
	// always makes the port non-required, regardless of Required.
	Default any `json:"default,omitempty"`
}

// NormalizedRequired applies the §4.B port-normalization rule: a default
// makes a port non-required regardless of the stored Required flag; with
// no default, the stored Required flag is returned as is. A PortSpec
// literal that sets neither Default nor Required is therefore not
// required; NewPortSpec is the constructor that sets Required to true.
func (p PortSpec) NormalizedRequired() bool {
	if p.Default != nil {
		return false
	}
	return p.Required
}

// NewPortSpec builds a required PortSpec with no default. Use
// NewOptionalPort for ports with a default value.
func NewPortSpec(name, typ string) PortSpec {
	return PortSpec{Name: name, Type: typ, Required: true}
}

// NewOptionalPort builds a PortSpec with a default value; per
// NormalizedRequired, the presence of a default always wins over
// Required.
func NewOptionalPort(name, typ string, def any) PortSpec {
	return PortSpec{Name: name, Type: typ, Default: def}
}

// NodeSpec is a registry catalog entry: everything needed to describe a
// node type to a UI/validator, independent of whether an Executor is
// registered for it (structural loop types have a spec but no executor).
type NodeSpec struct {
	Type        string     `json:"type"`
	Label       string     `json:"label"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Doc         string     `json:"doc"`
	Mode        string     `json:"mode"`
	Inputs      []PortSpec `json:"inputs"`
	Outputs     []PortSpec `json:"outputs"`
}

// InputNames returns the ordered list of input port names, the order the
// declarative executor wrapper (§6) uses to supply positional arguments.
func (s NodeSpec) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, p := range s.Inputs {
		names[i] = p.Name
	}
	return names
}

// OutputNames returns the ordered list of output port names.
func (s NodeSpec) OutputNames() []string {
	names := make([]string, len(s.Outputs))
	for i, p := range s.Outputs {
		names[i] = p.Name
	}
	return names
}

// Executor computes a node's outputs from its params and fanned-in
// inputs. Values on both sides are opaque to the engine. ctx carries
// the driver's node-scoped logger (retrievable with zerolog.Ctx) and,
// when tracing is enabled, the node's span; it is never cancelled —
// executors are expected to be finite and are not cancelled mid-flight
// (spec.md §5, "Cancellation").
type Executor func(ctx context.Context, params map[string]any, inputs map[string]any) (map[string]any, error)
