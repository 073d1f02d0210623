package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logdog-io/logdog/internal/config"
)

func TestBuildGraph_SingleHop(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Simple_Task", Start: "StartTask", Transitions: []config.Transition{
			{To: "EndTask", TimeoutMS: 30000},
		}, Description: "basic"},
	})

	edges := g.Edges("StartTask")
	require.Len(t, edges, 1)
	assert.Equal(t, "StartTask", edges[0].Source)
	assert.Equal(t, "EndTask", edges[0].Target)
	assert.Equal(t, int64(30000), edges[0].TimeoutMS)
	assert.Equal(t, "Simple_Task", edges[0].Rule)

	assert.False(t, g.HasEdges("EndTask"))
	assert.Empty(t, g.Edges("EndTask"))
}

func TestBuildGraph_MultiHopChain(t *testing.T) {
	// One rule describes a linear chain: each hop's source is the previous
	// hop's target.
	g := BuildGraph([]config.Rule{
		{Name: "Chain", Start: "A", Transitions: []config.Transition{
			{To: "B", TimeoutMS: 1000},
			{To: "C", TimeoutMS: 2000},
			{To: "D", TimeoutMS: 3000},
		}},
	})

	require.Len(t, g.Edges("A"), 1)
	assert.Equal(t, "B", g.Edges("A")[0].Target)
	require.Len(t, g.Edges("B"), 1)
	assert.Equal(t, "C", g.Edges("B")[0].Target)
	assert.Equal(t, int64(2000), g.Edges("B")[0].TimeoutMS)
	require.Len(t, g.Edges("C"), 1)
	assert.Equal(t, "D", g.Edges("C")[0].Target)
	assert.False(t, g.HasEdges("D"))
	assert.Equal(t, 3, g.NodeCount())
}

func TestBuildGraph_BranchMergeKeepsDeclarationOrder(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "A", Start: "X", Transitions: []config.Transition{{To: "B", TimeoutMS: 10000}}},
		{Name: "C", Start: "X", Transitions: []config.Transition{{To: "D", TimeoutMS: 10000}}},
	})

	edges := g.Edges("X")
	require.Len(t, edges, 2)
	assert.Equal(t, "A", edges[0].Rule)
	assert.Equal(t, "B", edges[0].Target)
	assert.Equal(t, "C", edges[1].Rule)
	assert.Equal(t, "D", edges[1].Target)
}

func TestBuildGraph_NoDeduplication(t *testing.T) {
	// Identical source/target pairs from different rules both survive.
	g := BuildGraph([]config.Rule{
		{Name: "R1", Start: "X", Transitions: []config.Transition{{To: "Y", TimeoutMS: 500}}},
		{Name: "R2", Start: "X", Transitions: []config.Transition{{To: "Y", TimeoutMS: 900}}},
	})
	assert.Len(t, g.Edges("X"), 2)
}

func TestGraph_MinTimeout(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Slow", Start: "X", Transitions: []config.Transition{{To: "B", TimeoutMS: 9000}}},
		{Name: "Fast", Start: "X", Transitions: []config.Transition{{To: "D", TimeoutMS: 4000}}},
	})

	min, ok := g.MinTimeout("X")
	require.True(t, ok)
	assert.Equal(t, int64(4000), min)

	_, ok = g.MinTimeout("B")
	assert.False(t, ok, "leaf nodes have no timeout")
	_, ok = g.MinTimeout("unknown")
	assert.False(t, ok)
}

func TestGraph_Targets(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "A", Start: "X", Transitions: []config.Transition{{To: "B", TimeoutMS: 1}}},
		{Name: "C", Start: "X", Transitions: []config.Transition{{To: "D", TimeoutMS: 1}}},
	})
	assert.Equal(t, []string{"B", "D"}, g.Targets("X"))
	assert.Empty(t, g.Targets("B"))
}
