// Package fanin implements the input fan-in rule (spec.md §4.F): given
// a node id and the edges in scope, produce a mapping from input-port
// name to accumulated value.
package fanin

import "github.com/citadel-agent/flowgraph/internal/types"

// Outputs is one node's recorded output values by port name, the "Node
// Outputs" table entries spec.md §3 describes.
type Outputs map[string]any

// Resolve accumulates inputs for nodeID from edges (already restricted
// to the caller's scope — e.g. forward edges, or a loop body's internal
// edges) using outputs, the per-node output tables computed so far.
// Edges are consumed in the order given, so callers that need the
// documented stable iteration order must pass edges pre-sorted (e.g. by
// edge id) when ordering matters for a tie.
func Resolve(nodeID string, edges []types.Edge, outputs map[string]Outputs) map[string]any {
	var contributions []contribution

	for _, e := range edges {
		if e.Target != nodeID || e.IsBackEdge {
			continue
		}
		srcOut, ok := outputs[e.Source]
		if !ok {
			continue
		}
		val, ok := srcOut[e.SourcePort]
		if !ok {
			continue
		}
		contributions = append(contributions, contribution{port: e.TargetPort, value: val})
	}

	byPort := make(map[string][]any)
	order := make([]string, 0)
	for _, c := range contributions {
		if _, seen := byPort[c.port]; !seen {
			order = append(order, c.port)
		}
		byPort[c.port] = append(byPort[c.port], c.value)
	}

	inputs := make(map[string]any, len(order))
	for _, port := range order {
		vals := byPort[port]
		if len(vals) == 1 {
			inputs[port] = vals[0]
		} else {
			seq := make([]any, len(vals))
			copy(seq, vals)
			inputs[port] = seq
		}
	}
	return inputs
}

type contribution struct {
	port  string
	value any
}
