package fanin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citadel-agent/flowgraph/internal/types"
)

func TestSingleContributionUnwrapped(t *testing.T) {
	edges := []types.Edge{{ID: "e1", Source: "a", SourcePort: "out", Target: "b", TargetPort: "in"}}
	outputs := map[string]Outputs{"a": {"out": 42}}

	got := Resolve("b", edges, outputs)
	assert.Equal(t, 42, got["in"])
}

func TestMultipleContributionsOrderedSequence(t *testing.T) {
	edges := []types.Edge{
		{ID: "e1", Source: "a", SourcePort: "out", Target: "c", TargetPort: "in"},
		{ID: "e2", Source: "b", SourcePort: "out", Target: "c", TargetPort: "in"},
	}
	outputs := map[string]Outputs{"a": {"out": 1}, "b": {"out": 2}}

	got := Resolve("c", edges, outputs)
	assert.Equal(t, []any{1, 2}, got["in"])
}

func TestBackEdgesExcluded(t *testing.T) {
	edges := []types.Edge{{ID: "e1", Source: "a", SourcePort: "out", Target: "b", TargetPort: "in", IsBackEdge: true}}
	outputs := map[string]Outputs{"a": {"out": 42}}

	got := Resolve("b", edges, outputs)
	_, present := got["in"]
	assert.False(t, present)
}

func TestNoContributionAbsentFromMapping(t *testing.T) {
	got := Resolve("b", nil, map[string]Outputs{})
	assert.Empty(t, got)
}

func TestMissingUpstreamOutputSkipped(t *testing.T) {
	edges := []types.Edge{{ID: "e1", Source: "a", SourcePort: "out", Target: "b", TargetPort: "in"}}
	got := Resolve("b", edges, map[string]Outputs{})
	_, present := got["in"]
	assert.False(t, present)
}
