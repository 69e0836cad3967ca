// Package validate implements the static workflow validator (spec.md
// §4.E): it never refuses to validate a malformed workflow, it only
// reports an ordered list of issues.
package validate

import (
	"sort"
	"strings"

	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/types"
)

// Level is the severity of a reported Issue.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
	Info    Level = "info"
)

// Issue is a single validator finding.
type Issue struct {
	Level   Level
	NodeID  string // empty when the issue is not node-scoped
	Message string
}

// reservedFeedbackPrefix returns the port-name prefix a structural
// node type reserves for loop feedback, exempting those ports from the
// missing-required-input check (spec.md Glossary: "Reserved loop-
// feedback ports").
func reservedFeedbackPrefix(nodeType string) (prefix string, ok bool) {
	switch nodeType {
	case types.TypeLoopEnd:
		return "in_", true
	case types.TypeBackEdgeLoop:
		return "feedback_", true
	default:
		return "", false
	}
}

func isReservedFeedbackPort(nodeType, portName string) bool {
	prefix, ok := reservedFeedbackPrefix(nodeType)
	if !ok {
		return false
	}
	return strings.HasPrefix(portName, prefix)
}

// Validate runs all seven checks from spec.md §4.E against wf using reg
// to resolve node types, and returns issues in a stable, deterministic
// order: unknown types, missing inputs, cycles, isolated nodes, muted
// info, loop pairing, then loop-feedback presence — each check's own
// findings ordered by node id.
func Validate(wf *types.Workflow, reg *registry.Registry) []Issue {
	snap := reg.Snapshot()

	var issues []Issue
	issues = append(issues, checkUnknownTypes(wf, snap)...)
	issues = append(issues, checkMissingRequiredInputs(wf, snap)...)
	issues = append(issues, checkCycles(wf)...)
	issues = append(issues, checkIsolatedNodes(wf)...)
	issues = append(issues, checkMuted(wf)...)
	issues = append(issues, checkLoopPairing(wf)...)
	issues = append(issues, checkLoopFeedbackPresence(wf)...)
	return issues
}

func sortedByNode(nodes []types.Node) []types.Node {
	out := make([]types.Node, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// 1. Unknown node type. Only the legacy container-loop type is exempt
// from registry presence (spec.md §4.E): loop_start/loop_end/
// loop_back_edge are ordinary registry types and must have a NodeSpec
// registered somewhere (internal/loop.Specs), same as any other node.
func checkUnknownTypes(wf *types.Workflow, snap registry.Snapshot) []Issue {
	var issues []Issue
	for _, n := range sortedByNode(wf.Nodes) {
		if n.Type == types.TypeContainerLoop {
			continue
		}
		if !snap.Has(n.Type) {
			issues = append(issues, Issue{
				Level:   Error,
				NodeID:  n.ID,
				Message: "unknown node type: " + n.Type,
			})
		}
	}
	return issues
}

// 2. Missing required input.
func checkMissingRequiredInputs(wf *types.Workflow, snap registry.Snapshot) []Issue {
	var issues []Issue
	forward := wf.ForwardEdges()

	for _, n := range sortedByNode(wf.Nodes) {
		spec, ok := snap.Spec(n.Type)
		if !ok {
			continue
		}
		incoming := types.EdgesTargeting(forward, n.ID)
		hasEdgeFor := make(map[string]bool, len(incoming))
		for _, e := range incoming {
			hasEdgeFor[e.TargetPort] = true
		}

		for _, port := range spec.Inputs {
			if !port.NormalizedRequired() {
				continue
			}
			if isReservedFeedbackPort(n.Type, port.Name) {
				continue
			}
			if !hasEdgeFor[port.Name] {
				issues = append(issues, Issue{
					Level:   Error,
					NodeID:  n.ID,
					Message: "missing required input: " + port.Name,
				})
			}
		}
	}
	return issues
}

// 3. Cycle: DFS 3-coloring over the top-level subgraph using only
// forward edges (back-edges are excluded per spec.md).
func checkCycles(wf *types.Workflow) []Issue {
	topLevel := make(map[string]bool)
	for _, n := range wf.TopLevelNodes() {
		topLevel[n.ID] = true
	}

	adj := make(map[string][]string)
	for _, e := range wf.ForwardEdges() {
		if !topLevel[e.Source] || !topLevel[e.Target] {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for src := range adj {
		sort.Strings(adj[src])
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var cyclic bool

	var visit func(id string)
	visit = func(id string) {
		if cyclic {
			return
		}
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				cyclic = true
				return
			case white:
				visit(next)
				if cyclic {
					return
				}
			}
		}
		color[id] = black
	}

	ids := make([]string, 0, len(topLevel))
	for id := range topLevel {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			visit(id)
		}
		if cyclic {
			break
		}
	}

	if cyclic {
		return []Issue{{Level: Error, Message: "workflow contains a cycle among forward edges"}}
	}
	return nil
}

// 4. Isolated node: zero incident edges in a workflow of more than one
// node, except loop-structural types.
func checkIsolatedNodes(wf *types.Workflow) []Issue {
	if len(wf.Nodes) <= 1 {
		return nil
	}

	incident := make(map[string]bool)
	for _, e := range wf.Edges {
		incident[e.Source] = true
		incident[e.Target] = true
	}

	var issues []Issue
	for _, n := range sortedByNode(wf.Nodes) {
		if types.IsStructural(n.Type) {
			continue
		}
		if !incident[n.ID] {
			issues = append(issues, Issue{
				Level:   Warning,
				NodeID:  n.ID,
				Message: "node has no incident edges",
			})
		}
	}
	return issues
}

// 5. Muted: info.
func checkMuted(wf *types.Workflow) []Issue {
	var issues []Issue
	for _, n := range sortedByNode(wf.Nodes) {
		if n.Muted {
			issues = append(issues, Issue{Level: Info, NodeID: n.ID, Message: "node is muted"})
		}
	}
	return issues
}

// 6. Loop pair: every loop_start must have a matching loop_end, and
// every loop_end's pair_id must refer to an existing loop_start.
func checkLoopPairing(wf *types.Workflow) []Issue {
	starts := make(map[string]bool)
	for _, n := range wf.Nodes {
		if n.Type == types.TypeLoopStart {
			starts[n.ID] = true
		}
	}

	pairedStart := make(map[string]bool)
	var issues []Issue

	for _, n := range sortedByNode(wf.Nodes) {
		if n.Type != types.TypeLoopEnd {
			continue
		}
		pairID, _ := n.Params[types.PairIDParam].(string)
		if pairID == "" || !starts[pairID] {
			issues = append(issues, Issue{
				Level:   Error,
				NodeID:  n.ID,
				Message: "loop_end pair_id does not refer to an existing loop_start",
			})
			continue
		}
		pairedStart[pairID] = true
	}

	for _, n := range sortedByNode(wf.Nodes) {
		if n.Type != types.TypeLoopStart {
			continue
		}
		if !pairedStart[n.ID] {
			issues = append(issues, Issue{
				Level:   Error,
				NodeID:  n.ID,
				Message: "loop_start has no matching loop_end",
			})
		}
	}
	return issues
}

// 7. Loop-feedback presence: a back-edge-loop node without any
// incoming back-edge will repeat constant data.
func checkLoopFeedbackPresence(wf *types.Workflow) []Issue {
	hasBackEdgeTo := make(map[string]bool)
	for _, e := range wf.BackEdges() {
		hasBackEdgeTo[e.Target] = true
	}

	var issues []Issue
	for _, n := range sortedByNode(wf.Nodes) {
		if n.Type != types.TypeBackEdgeLoop {
			continue
		}
		if !hasBackEdgeTo[n.ID] {
			issues = append(issues, Issue{
				Level:   Warning,
				NodeID:  n.ID,
				Message: "back-edge loop has no incoming feedback edge; values will repeat",
			})
		}
	}
	return issues
}
