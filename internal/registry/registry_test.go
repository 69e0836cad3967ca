package registry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citadel-agent/flowgraph/internal/types"
)

func newTestRegistry() *Registry {
	return New(zerolog.Nop())
}

func TestRegisterAndLookup(t *testing.T) {
	r := newTestRegistry()
	spec := types.NodeSpec{Type: "add", Inputs: []types.PortSpec{types.NewPortSpec("a", "number")}}
	r.Register(spec, func(ctx context.Context, params, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"sum": 1}, nil
	})

	got, ok := r.Spec("add")
	require.True(t, ok)
	assert.Equal(t, "add", got.Type)

	exec, ok := r.Executor("add")
	require.True(t, ok)
	out, err := exec(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out["sum"])
}

func TestRegisterWithoutExecutorHasNoExecutor(t *testing.T) {
	r := newTestRegistry()
	r.Register(types.NodeSpec{Type: "loop_container"}, nil)

	assert.True(t, r.Has("loop_container"))
	_, ok := r.Executor("loop_container")
	assert.False(t, ok)
}

func TestDuplicateRegistrationOverwrites(t *testing.T) {
	r := newTestRegistry()
	r.Register(types.NodeSpec{Type: "add", Label: "first"}, nil)
	r.Register(types.NodeSpec{Type: "add", Label: "second"}, nil)

	got, ok := r.Spec("add")
	require.True(t, ok)
	assert.Equal(t, "second", got.Label)
}

func TestUnregisterIsSilentOnMiss(t *testing.T) {
	r := newTestRegistry()
	assert.NotPanics(t, func() { r.Unregister("does_not_exist") })
}

func TestNormalizePortsDefaultOverridesRequired(t *testing.T) {
	r := newTestRegistry()
	r.Register(types.NodeSpec{
		Type:   "thing",
		Inputs: []types.PortSpec{{Name: "x", Required: true, Default: 5}},
	}, nil)

	got, _ := r.Spec("thing")
	assert.False(t, got.Inputs[0].Required)
}

func TestSnapshotIsIndependentOfLaterMutation(t *testing.T) {
	r := newTestRegistry()
	r.Register(types.NodeSpec{Type: "add"}, nil)
	snap := r.Snapshot()

	r.Unregister("add")

	assert.True(t, snap.Has("add"))
	assert.False(t, r.Has("add"))
}

func TestClearRemovesEverything(t *testing.T) {
	r := newTestRegistry()
	r.Register(types.NodeSpec{Type: "add"}, nil)
	r.Register(types.NodeSpec{Type: "sub"}, nil)
	r.Clear()

	assert.Empty(t, r.All())
}
