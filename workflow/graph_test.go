package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waverun/waverun/types"
)

func diamondDefinition() *Definition {
	return &Definition{
		ID: "diamond",
		Nodes: []Node{
			{ID: "a", Type: NodeManualTrigger},
			{ID: "b", Type: NodeMerge},
			{ID: "c", Type: NodeMerge},
			{ID: "d", Type: NodeMerge},
		},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "d"},
			{Source: "c", Target: "d"},
		},
	}
}

func TestBuildGraph_Diamond(t *testing.T) {
	t.Parallel()

	g, err := BuildGraph(diamondDefinition())
	require.NoError(t, err)

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"a"}, g.ReadyNodes())
	assert.Equal(t, 0, g.InDegree("a"))
	assert.Equal(t, 1, g.InDegree("b"))
	assert.Equal(t, 2, g.InDegree("d"))
	assert.ElementsMatch(t, []string{"b", "c"}, g.Dependents("a"))
	assert.ElementsMatch(t, []string{"b", "c"}, g.Dependencies("d"))
	assert.Equal(t, []string{"d"}, g.SinkNodes())
}

func TestBuildGraph_EdgeEndpointMissing(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID:    "bad",
		Nodes: []Node{{ID: "a", Type: NodeManualTrigger}},
		Edges: []Edge{{Source: "a", Target: "ghost"}},
	}

	_, err := BuildGraph(def)
	require.Error(t, err)
	assert.Equal(t, types.ErrGraphConstruction, types.GetErrorCode(err))
}

func TestBuildGraph_DuplicateNodeID(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID: "dup",
		Nodes: []Node{
			{ID: "a", Type: NodeManualTrigger},
			{ID: "a", Type: NodeMerge},
		},
	}

	_, err := BuildGraph(def)
	require.Error(t, err)
	assert.Equal(t, types.ErrGraphConstruction, types.GetErrorCode(err))
}

func TestBuildGraph_ConfigTypeMismatch(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID: "bad-config",
		Nodes: []Node{
			{ID: "c", Type: NodeCompletion, Config: &TriggerConfig{}},
		},
	}

	_, err := BuildGraph(def)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidNodeConfig, types.GetErrorCode(err))
}

func TestBuildGraph_RequiredConfigMissing(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID:    "missing-config",
		Nodes: []Node{{ID: "c", Type: NodeCondition}},
	}

	_, err := BuildGraph(def)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidNodeConfig, types.GetErrorCode(err))
}

func TestBuildGraph_InvalidExpressionFailsAtBuild(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID: "bad-expr",
		Nodes: []Node{
			{ID: "c", Type: NodeCondition, Config: &ConditionConfig{Expression: "data.x >"}},
		},
	}

	_, err := BuildGraph(def)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidNodeConfig, types.GetErrorCode(err))
}

func TestDetectCycle(t *testing.T) {
	t.Parallel()

	def := &Definition{
		ID: "cyclic",
		Nodes: []Node{
			{ID: "a", Type: NodeMerge},
			{ID: "b", Type: NodeMerge},
			{ID: "c", Type: NodeMerge},
		},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "a"},
		},
	}

	g, err := BuildGraph(def)
	require.NoError(t, err)

	err = g.DetectCycle()
	require.Error(t, err)
	assert.Equal(t, types.ErrCycleDetected, types.GetErrorCode(err))

	acyclic, err := BuildGraph(diamondDefinition())
	require.NoError(t, err)
	assert.NoError(t, acyclic.DetectCycle())
}

func TestResolve_UnlocksDependentsAtZero(t *testing.T) {
	t.Parallel()

	g, err := BuildGraph(diamondDefinition())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"b", "c"}, g.Resolve("a"))
	assert.Empty(t, g.Resolve("b"), "d still waits on c")
	assert.Equal(t, []string{"d"}, g.Resolve("c"))
}
