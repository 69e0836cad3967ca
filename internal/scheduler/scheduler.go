// Package scheduler implements the topological scheduler (spec.md
// §4.G): Kahn's algorithm over forward edges, restricted to a given
// node set, with stable FIFO tie-breaking and no hard failure on
// cycles (the validator is the hard-failure defense; this package just
// omits the cyclic component from the order).
package scheduler

import "github.com/citadel-agent/flowgraph/internal/types"

// Order returns nodes in topological order given nodes and edges
// restricted to the scheduler's scope by the caller (e.g. top-level
// nodes and the edges between them, or a loop body and its internal
// edges). Back-edges are excluded regardless of what the caller
// passes, per spec.md. Ties are broken by the order nodes appear in
// the nodes slice ("insertion order of ready detection"): the initial
// ready set is built by scanning nodes in order, and each node's
// outgoing edges are relaxed in the order they appear in edges, so two
// nodes that become ready at the same step queue in the order their
// zeroing edge was processed.
func Order(nodes []types.Node, edges []types.Edge) []string {
	inDegree := make(map[string]int, len(nodes))
	index := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
		index[n.ID] = true
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		if e.IsBackEdge {
			continue
		}
		if !index[e.Source] || !index[e.Target] {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	queue := make([]string, 0, len(nodes))
	queued := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
			queued[n.ID] = true
		}
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 && !queued[next] {
				queue = append(queue, next)
				queued[next] = true
			}
		}
	}

	return order
}
