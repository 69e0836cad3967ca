package types

// Structural node types are recognized by the driver without a
// registered executor (spec.md §6, "Engine-handled structural types").
// Their specs are still registered so they appear in catalogs and the
// validator, but Registry.Executor returns false for them.
const (
	// TypeContainerLoop is the legacy parent/child loop group (§4.H1).
	// Iteration count lives in the node's "iterations" param; children
	// are the nodes whose ParentID equals this node's ID.
	TypeContainerLoop = "loop_container"

	// TypeLoopStart is the start half of a start/end-pair loop (§4.H2).
	// Its paired end node names it via the "pair_id" param.
	TypeLoopStart = "loop_start"

	// TypeLoopEnd is the end half of a start/end-pair loop. Its
	// "pair_id" param must equal a TypeLoopStart node's ID.
	TypeLoopEnd = "loop_end"

	// TypeBackEdgeLoop is the n8n-style back-edge loop node (§4.H3),
	// with init_k/loop_k/feedback_k/done_k ports.
	TypeBackEdgeLoop = "loop_back_edge"
)

// IsStructural reports whether nodeType is one of the engine-handled
// structural types, which the driver dispatches to a loop executor
// instead of looking up a registry executor.
func IsStructural(nodeType string) bool {
	switch nodeType {
	case TypeContainerLoop, TypeLoopStart, TypeLoopEnd, TypeBackEdgeLoop:
		return true
	default:
		return false
	}
}

// PairIDParam is the param key naming a loop_end's matching loop_start.
// Back-edge loops do not use it (their back-edges carry IsBackEdge).
const PairIDParam = "pair_id"

// IterationsParam is the param key on TypeContainerLoop, TypeLoopStart
// and TypeBackEdgeLoop holding the loop's iteration count.
const IterationsParam = "iterations"
