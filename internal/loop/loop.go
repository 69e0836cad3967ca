// Package loop implements the three loop-execution dialects of spec.md
// §4.H: the legacy container loop (parent/child embedding), the
// start/end-pair loop, and the back-edge loop. Each is a small state
// machine built on top of internal/fanin and internal/scheduler; none
// of them schedule more than one node at a time, matching the
// sequential execution model of spec.md §5.
package loop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/citadel-agent/flowgraph/internal/fanin"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/scheduler"
	"github.com/citadel-agent/flowgraph/internal/types"
)

// MaxIterations is the hard clamp from spec.md §5 ("Resource bounds").
const MaxIterations = 10000

// Specs returns the catalog entries for the four structural loop types
// the driver dispatches to directly (§4.H). Each is registered with a
// nil executor: the registry's own convention for a type that appears
// in catalogs and validation but is never looked up by invoke, since
// Engine.Run routes it to dispatchStructural instead. Their ports are
// instance-keyed (slot_k, in_k/out_k, init_k/loop_k/feedback_k/done_k)
// rather than fixed, so no Inputs/Outputs are declared here — declaring
// a fixed port list would make checkMissingRequiredInputs misfire on
// every instance.
func Specs() []types.NodeSpec {
	return []types.NodeSpec{
		{
			Type:        types.TypeContainerLoop,
			Label:       "Loop (container)",
			Category:    "control",
			Description: "Legacy parent/child container loop (§4.H1).",
		},
		{
			Type:        types.TypeLoopStart,
			Label:       "Loop Start",
			Category:    "control",
			Description: "Opening half of a start/end-pair loop (§4.H2).",
		},
		{
			Type:        types.TypeLoopEnd,
			Label:       "Loop End",
			Category:    "control",
			Description: "Closing half of a start/end-pair loop (§4.H2), paired to its loop_start by pair_id.",
		},
		{
			Type:        types.TypeBackEdgeLoop,
			Label:       "Back-Edge Loop",
			Category:    "control",
			Description: "Back-edge-fed loop (§4.H3); carries state across iterations via a declared feedback edge.",
		},
	}
}

// RegisterSpecs registers every Specs() entry against reg with a nil
// executor.
func RegisterSpecs(reg *registry.Registry) {
	for _, spec := range Specs() {
		reg.Register(spec, nil)
	}
}

// ClampIterations applies the [1, 10000] bound from spec.md §5.
func ClampIterations(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxIterations {
		return MaxIterations
	}
	return n
}

// Dispatcher executes a single non-structural node, the same contract
// the main driver uses for ordinary nodes (registry lookup + invoke).
type Dispatcher interface {
	Execute(node types.Node, inputs map[string]any) (map[string]any, error)
}

func iterationsParam(n types.Node) int {
	raw, ok := n.Params[types.IterationsParam]
	if !ok {
		return 1
	}
	switch v := raw.(type) {
	case int:
		return ClampIterations(v)
	case int64:
		return ClampIterations(int(v))
	case float64:
		return ClampIterations(int(v))
	default:
		return 1
	}
}

func renamePrefix(name, from, to string) (string, bool) {
	if !strings.HasPrefix(name, from) {
		return "", false
	}
	return to + strings.TrimPrefix(name, from), true
}

func runNodesInOrder(nodes []types.Node, edges []types.Edge, outputs map[string]fanin.Outputs, dispatch Dispatcher) error {
	order := scheduler.Order(nodes, edges)
	byID := make(map[string]types.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, id := range order {
		n := byID[id]
		inputs := fanin.Resolve(n.ID, edges, outputs)

		// A structural node inside a loop body (e.g. the loop_end half
		// of a start/end pair) has no registered executor: it passes
		// its fanned-in inputs through unchanged, the same treatment
		// the main driver gives a muted node.
		if types.IsStructural(n.Type) {
			outputs[n.ID] = inputs
			continue
		}

		out, err := dispatch.Execute(n, inputs)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		outputs[n.ID] = out
	}
	return nil
}

// RunContainer executes the legacy container loop (§4.H1). slots holds
// the group node's resolved input values (keyed by slot_k port name,
// already fanned in from the group's external incoming edges). It
// returns the group's final output map.
func RunContainer(wf *types.Workflow, group types.Node, slots map[string]any, dispatch Dispatcher) (map[string]any, error) {
	children := wf.ChildrenOf(group.ID)
	childIDs := make(map[string]bool, len(children))
	for _, c := range children {
		childIDs[c.ID] = true
	}

	var internal []types.Edge
	for _, e := range wf.ForwardEdges() {
		if !childIDs[e.Target] {
			continue
		}
		if e.Source == group.ID || childIDs[e.Source] {
			internal = append(internal, e)
		}
	}

	// A group with no children passes its slots through unchanged.
	if len(children) == 0 {
		return slots, nil
	}

	exitChild, err := findExitChild(children, internal)
	if err != nil {
		return nil, err
	}

	// The slot names matched against the exit child's outputs are
	// exactly the keys already in slots: the caller fans slots in from
	// the group's external incoming edges before calling RunContainer,
	// so those edges' target-port names are already slots' keys.
	iterations := iterationsParam(group)
	for i := 0; i < iterations; i++ {
		outputs := map[string]fanin.Outputs{group.ID: slots}
		if err := runNodesInOrder(children, internal, outputs, dispatch); err != nil {
			return nil, fmt.Errorf("container loop %s iteration %d: %w", group.ID, i, err)
		}

		exitOut := outputs[exitChild.ID]
		for slotName := range slots {
			if val, ok := exitOut[slotName]; ok {
				slots[slotName] = val
			}
		}
	}

	return slots, nil
}

func findExitChild(children []types.Node, internal []types.Edge) (types.Node, error) {
	if len(children) == 0 {
		return types.Node{}, fmt.Errorf("container loop has no children")
	}

	hasOutgoing := make(map[string]bool, len(children))
	for _, e := range internal {
		hasOutgoing[e.Source] = true
	}

	candidates := make([]types.Node, 0)
	for _, c := range children {
		if !hasOutgoing[c.ID] {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return types.Node{}, fmt.Errorf("container loop has no exit child")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates[0], nil
}

// RunStartEnd executes a start/end-pair loop (§4.H2). outputs is the
// shared top-level outputs table; RunStartEnd writes the start and
// every body node's outputs into it directly, so downstream nodes that
// read from the end node's ports see them as ordinary table entries.
// It returns the ids of every body node except the start node itself,
// for the caller to add to its already-executed set.
func RunStartEnd(wf *types.Workflow, start types.Node, externalEdges []types.Edge, outputs map[string]fanin.Outputs, dispatch Dispatcher) ([]string, error) {
	end, err := findPairedEnd(wf, start)
	if err != nil {
		return nil, err
	}

	bodyIDs := discoverBody(wf, start.ID, end.ID)
	body := make([]types.Node, 0, len(bodyIDs))
	bodySet := make(map[string]bool, len(bodyIDs))
	for _, id := range bodyIDs {
		if id == start.ID {
			continue
		}
		if n := wf.NodeByID(id); n != nil {
			body = append(body, *n)
			bodySet[id] = true
		}
	}

	var bodyEdges []types.Edge
	for _, e := range wf.ForwardEdges() {
		if e.Source == start.ID && bodySet[e.Target] {
			bodyEdges = append(bodyEdges, e)
			continue
		}
		if bodySet[e.Source] && bodySet[e.Target] {
			bodyEdges = append(bodyEdges, e)
		}
	}

	current := fanin.Resolve(start.ID, externalEdges, outputs)

	iterations := iterationsParam(start)
	for i := 0; i < iterations; i++ {
		startOut := make(fanin.Outputs, len(current))
		for name, val := range current {
			if renamed, ok := renamePrefix(name, "in_", "out_"); ok {
				startOut[renamed] = val
			}
		}
		outputs[start.ID] = startOut

		if err := runNodesInOrder(body, bodyEdges, outputs, dispatch); err != nil {
			return nil, fmt.Errorf("start/end loop %s iteration %d: %w", start.ID, i, err)
		}

		next := make(map[string]any)
		for name, val := range outputs[end.ID] {
			if renamed, ok := renamePrefix(name, "out_", "in_"); ok {
				next[renamed] = val
			}
		}
		current = next
	}

	return bodyIDs[1:], nil
}

func findPairedEnd(wf *types.Workflow, start types.Node) (types.Node, error) {
	for _, n := range wf.Nodes {
		if n.Type != types.TypeLoopEnd {
			continue
		}
		if pairID, _ := n.Params[types.PairIDParam].(string); pairID == start.ID {
			return n, nil
		}
	}
	return types.Node{}, fmt.Errorf("loop_start %s has no matching loop_end", start.ID)
}

// discoverBody returns start, every node reachable from start on
// forward edges without continuing past end, and end itself — in BFS
// visitation order, start first.
func discoverBody(wf *types.Workflow, startID, endID string) []string {
	visited := map[string]bool{startID: true}
	order := []string{startID}
	queue := []string{startID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == endID {
			continue
		}
		for _, e := range types.EdgesSourcedFrom(wf.ForwardEdges(), id) {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			order = append(order, e.Target)
			queue = append(queue, e.Target)
		}
	}
	return order
}

// RunBackEdge executes a back-edge loop node (§4.H3). init holds the
// loop's resolved init_k values. It returns the node's final done_k
// output map and the chain node ids to add to already-executed.
func RunBackEdge(wf *types.Workflow, loopNode types.Node, init map[string]any, dispatch Dispatcher) (map[string]any, []string, error) {
	chainIDs := discoverChain(wf, loopNode.ID)
	chain := make([]types.Node, 0, len(chainIDs))
	chainSet := make(map[string]bool, len(chainIDs))
	for _, id := range chainIDs {
		if n := wf.NodeByID(id); n != nil {
			chain = append(chain, *n)
			chainSet[id] = true
		}
	}

	var chainEdges []types.Edge
	for _, e := range wf.ForwardEdges() {
		if e.Source == loopNode.ID && strings.HasPrefix(e.SourcePort, "loop_") && chainSet[e.Target] {
			chainEdges = append(chainEdges, e)
			continue
		}
		if chainSet[e.Source] && chainSet[e.Target] {
			chainEdges = append(chainEdges, e)
		}
	}

	slot := make(map[string]any)
	for name, val := range init {
		if renamed, ok := renamePrefix(name, "init_", "loop_"); ok {
			slot[renamed] = val
		}
	}

	outputs := make(map[string]fanin.Outputs)

	iterations := iterationsParam(loopNode)
	for i := 0; i < iterations; i++ {
		loopOut := make(fanin.Outputs, len(slot)*2)
		for name, val := range slot {
			loopOut[name] = val
			if done, ok := renamePrefix(name, "loop_", "done_"); ok {
				loopOut[done] = val
			}
		}
		outputs[loopNode.ID] = loopOut

		if err := runNodesInOrder(chain, chainEdges, outputs, dispatch); err != nil {
			return nil, nil, fmt.Errorf("back-edge loop %s iteration %d: %w", loopNode.ID, i, err)
		}

		for _, e := range wf.BackEdges() {
			if e.Target != loopNode.ID {
				continue
			}
			k, ok := renamePrefix(e.TargetPort, "feedback_", "loop_")
			if !ok {
				continue
			}
			if src, ok := outputs[e.Source]; ok {
				if val, ok := src[e.SourcePort]; ok {
					slot[k] = val
				}
			}
		}
	}

	final := make(map[string]any, len(slot))
	for name, val := range slot {
		if done, ok := renamePrefix(name, "loop_", "done_"); ok {
			final[done] = val
		}
	}

	return final, chainIDs, nil
}

// discoverChain returns the nodes reachable from loopNode via forward
// edges sourced from a loop_* port, then transitively via forward
// edges among already-visited chain nodes. The loop node itself is
// never included even if a forward cycle would otherwise revisit it
// (the only path back is the declared back-edge, which this function
// does not traverse).
func discoverChain(wf *types.Workflow, loopNodeID string) []string {
	visited := map[string]bool{loopNodeID: true}
	var order []string
	var queue []string

	for _, e := range types.EdgesSourcedFrom(wf.ForwardEdges(), loopNodeID) {
		if !strings.HasPrefix(e.SourcePort, "loop_") || visited[e.Target] {
			continue
		}
		visited[e.Target] = true
		order = append(order, e.Target)
		queue = append(queue, e.Target)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range types.EdgesSourcedFrom(wf.ForwardEdges(), id) {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			order = append(order, e.Target)
			queue = append(queue, e.Target)
		}
	}
	return order
}
