package validate

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/citadel-agent/flowgraph/internal/loop"
	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/types"
)

// newTestRegistry mirrors cmd/flowserver/main.go's registry setup: the
// structural loop types are ordinary registry entries (spec.md §4.E),
// so every test exercising them needs their specs present the same way
// production does.
func newTestRegistry() *registry.Registry {
	reg := registry.New(zerolog.Nop())
	loop.RegisterSpecs(reg)
	return reg
}

func findLevel(issues []Issue, level Level) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Level == level {
			out = append(out, i)
		}
	}
	return out
}

func TestUnknownNodeType(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "n1", Type: "mystery"}}}

	issues := Validate(wf, reg)
	errs := findLevel(issues, Error)
	assert.Len(t, errs, 1)
	assert.Equal(t, "n1", errs[0].NodeID)
}

func TestStructuralTypeNeverUnknown(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "loop1", Type: types.TypeContainerLoop}}}

	issues := Validate(wf, reg)
	for _, i := range issues {
		assert.NotEqual(t, "unknown node type: "+types.TypeContainerLoop, i.Message)
	}
}

func TestMissingRequiredInput(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(types.NodeSpec{
		Type:   "add",
		Inputs: []types.PortSpec{types.NewPortSpec("a", "number")},
	}, func(ctx context.Context, p, i map[string]any) (map[string]any, error) { return nil, nil })
	wf := &types.Workflow{Nodes: []types.Node{{ID: "n1", Type: "add"}}}

	issues := Validate(wf, reg)
	errs := findLevel(issues, Error)
	assert.Len(t, errs, 1)
}

func TestReservedFeedbackPortExemptFromMissingInputCheck(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(types.NodeSpec{
		Type:   types.TypeLoopEnd,
		Inputs: []types.PortSpec{types.NewPortSpec("in_1", "any")},
	}, nil)
	wf := &types.Workflow{Nodes: []types.Node{{ID: "end1", Type: types.TypeLoopEnd, Params: map[string]any{types.PairIDParam: "start1"}}}}

	issues := Validate(wf, reg)
	for _, i := range issues {
		assert.NotContains(t, i.Message, "missing required input")
	}
}

func TestCycleDetected(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{
		Nodes: []types.Node{{ID: "a"}, {ID: "b"}},
		Edges: []types.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	}

	issues := Validate(wf, reg)
	errs := findLevel(issues, Error)
	found := false
	for _, e := range errs {
		if e.Message == "workflow contains a cycle among forward edges" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBackEdgeExcludedFromCycleCheck(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{
		Nodes: []types.Node{{ID: "a"}, {ID: "b"}},
		Edges: []types.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a", IsBackEdge: true},
		},
	}

	issues := Validate(wf, reg)
	for _, i := range issues {
		assert.NotEqual(t, "workflow contains a cycle among forward edges", i.Message)
	}
}

func TestIsolatedNodeWarning(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "a"}, {ID: "b"}}}

	issues := Validate(wf, reg)
	warns := findLevel(issues, Warning)
	assert.Len(t, warns, 2)
}

func TestSingleNodeWorkflowNeverIsolated(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "a"}}}

	issues := Validate(wf, reg)
	assert.Empty(t, findLevel(issues, Warning))
}

func TestMutedInfo(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Muted: true}}}

	issues := Validate(wf, reg)
	infos := findLevel(issues, Info)
	assert.Len(t, infos, 1)
}

func TestLoopPairingMissingEnd(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "start1", Type: types.TypeLoopStart}}}

	issues := Validate(wf, reg)
	errs := findLevel(issues, Error)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "no matching loop_end")
}

func TestLoopPairingValid(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{
		{ID: "start1", Type: types.TypeLoopStart},
		{ID: "end1", Type: types.TypeLoopEnd, Params: map[string]any{types.PairIDParam: "start1"}},
	}}

	issues := Validate(wf, reg)
	assert.Empty(t, findLevel(issues, Error))
}

func TestUnregisteredLoopStartOrEndIsUnknownType(t *testing.T) {
	reg := registry.New(zerolog.Nop()) // deliberately bypasses loop.RegisterSpecs
	wf := &types.Workflow{Nodes: []types.Node{
		{ID: "start1", Type: types.TypeLoopStart},
		{ID: "end1", Type: types.TypeLoopEnd, Params: map[string]any{types.PairIDParam: "start1"}},
		{ID: "back1", Type: types.TypeBackEdgeLoop},
	}}

	issues := Validate(wf, reg)
	errs := findLevel(issues, Error)
	var unknownNodeIDs []string
	for _, e := range errs {
		if e.Message == "unknown node type: "+types.TypeLoopStart ||
			e.Message == "unknown node type: "+types.TypeLoopEnd ||
			e.Message == "unknown node type: "+types.TypeBackEdgeLoop {
			unknownNodeIDs = append(unknownNodeIDs, e.NodeID)
		}
	}
	assert.ElementsMatch(t, []string{"start1", "end1", "back1"}, unknownNodeIDs)
}

func TestBackEdgeLoopWithoutFeedbackWarns(t *testing.T) {
	reg := newTestRegistry()
	wf := &types.Workflow{Nodes: []types.Node{{ID: "loop1", Type: types.TypeBackEdgeLoop}}}

	issues := Validate(wf, reg)
	warns := findLevel(issues, Warning)
	found := false
	for _, w := range warns {
		if w.NodeID == "loop1" {
			found = true
		}
	}
	assert.True(t, found)
}
