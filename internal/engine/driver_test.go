package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citadel-agent/flowgraph/internal/registry"
	"github.com/citadel-agent/flowgraph/internal/types"
)

func newTestEngine(reg *registry.Registry, sink EventSink) *Engine {
	return New(reg, zerolog.Nop(), sink, nil, nil)
}

func TestRunExecutesNodesInTopologicalOrder(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	var order []string
	reg.Register(types.NodeSpec{Type: "step"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		order = append(order, params["name"].(string))
		return map[string]any{"v": 1}, nil
	})

	wf := &types.Workflow{
		Nodes: []types.Node{
			{ID: "a", Type: "step", Params: map[string]any{"name": "a"}},
			{ID: "b", Type: "step", Params: map[string]any{"name": "b"}},
		},
		Edges: []types.Edge{{ID: "e1", Source: "a", SourcePort: "v", Target: "b", TargetPort: "v"}},
	}

	eng := newTestEngine(reg, nil)
	require.NoError(t, eng.Run(wf))
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestRunEmitsStartAndComplete(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	var kinds []Kind
	sink := FuncSink(func(e Event) { kinds = append(kinds, e.Kind) })

	wf := &types.Workflow{Nodes: []types.Node{}}
	eng := newTestEngine(reg, sink)
	require.NoError(t, eng.Run(wf))

	assert.Equal(t, Kind("start"), kinds[0])
	assert.Equal(t, Kind("complete"), kinds[len(kinds)-1])
}

func TestRunReturnsNodeUnavailable(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "missing"}}}

	eng := newTestEngine(reg, nil)
	err := eng.Run(wf)
	require.Error(t, err)

	var unavailable *NodeUnavailableError
	assert.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "a", unavailable.NodeID)
}

func TestMutedNodeSkipsExecutor(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	called := false
	reg.Register(types.NodeSpec{Type: "noop"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		called = true
		return nil, nil
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "noop", Muted: true}}}
	eng := newTestEngine(reg, nil)
	require.NoError(t, eng.Run(wf))
	assert.False(t, called)
}

func TestExecutorErrorStopsExecutionAndEmitsNodeError(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "boom"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return nil, assert.AnError
	})

	var sawError bool
	sink := FuncSink(func(e Event) {
		if e.Kind == KindNodeError {
			sawError = true
		}
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "boom"}}}
	eng := newTestEngine(reg, sink)
	err := eng.Run(wf)

	require.Error(t, err)
	assert.True(t, sawError)
}

func TestNodeErrorCarriesStackTrace(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "boom"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return nil, assert.AnError
	})

	var errEvent Event
	sink := FuncSink(func(e Event) {
		if e.Kind == KindNodeError {
			errEvent = e
		}
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "boom"}}}
	eng := newTestEngine(reg, sink)
	require.Error(t, eng.Run(wf))

	assert.NotEmpty(t, errEvent.StackTrace)
	assert.Contains(t, errEvent.StackTrace, ".go:")
}

func TestPanickingExecutorRecoveredAsNodeError(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "panics"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		panic("executor blew up")
	})

	var errEvent Event
	sink := FuncSink(func(e Event) {
		if e.Kind == KindNodeError {
			errEvent = e
		}
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "panics"}}}
	eng := newTestEngine(reg, sink)
	err := eng.Run(wf)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: executor blew up")
	assert.NotEmpty(t, errEvent.StackTrace)
}

func TestExecutorLogEmitsLogEvent(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "logger"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		zerolog.Ctx(ctx).Info().Msg("hello from node")
		return map[string]any{}, nil
	})

	var logEvents []Event
	sink := FuncSink(func(e Event) {
		if e.Kind == KindLog {
			logEvents = append(logEvents, e)
		}
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "logger"}}}
	eng := newTestEngine(reg, sink)
	require.NoError(t, eng.Run(wf))

	require.Len(t, logEvents, 1)
	assert.Equal(t, "a", logEvents[0].NodeID)
	assert.Equal(t, LogInfo, logEvents[0].Level)
	assert.Equal(t, "hello from node", logEvents[0].Message)
}

func TestContainerLoopDispatchedEndToEnd(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "const"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"count": 0}, nil
	})
	reg.Register(types.NodeSpec{Type: "incr"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"count": inputs["count"].(int) + 1}, nil
	})

	parent := "group1"
	wf := &types.Workflow{
		Nodes: []types.Node{
			{ID: "seed", Type: "const"},
			{ID: "group1", Type: types.TypeContainerLoop, Params: map[string]any{"iterations": 4}},
			{ID: "incr", Type: "incr", ParentID: &parent},
		},
		Edges: []types.Edge{
			{ID: "e0", Source: "seed", SourcePort: "count", Target: "group1", TargetPort: "count"},
			{ID: "e1", Source: "group1", SourcePort: "count", Target: "incr", TargetPort: "count"},
		},
	}

	eng := newTestEngine(reg, nil)
	require.NoError(t, eng.Run(wf))
}

func TestBreakpointEmitted(t *testing.T) {
	reg := registry.New(zerolog.Nop())
	reg.Register(types.NodeSpec{Type: "noop"}, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return nil, nil
	})

	var sawBreakpoint bool
	sink := FuncSink(func(e Event) {
		if e.Kind == KindBreakpoint {
			sawBreakpoint = true
		}
	})

	wf := &types.Workflow{Nodes: []types.Node{{ID: "a", Type: "noop"}}}
	eng := newTestEngine(reg, sink)
	eng.SetBreakpoints("a")
	require.NoError(t, eng.Run(wf))
	assert.True(t, sawBreakpoint)
}
