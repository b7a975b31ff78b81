package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
)

func buildDiamond(t *testing.T) *Graph {
	t.Helper()
	g := New("diamond", "Diamond", "")
	for _, id := range []string{"s", "p1", "p2", "p3", "j"} {
		require.NoError(t, g.AddNode(NewNode(id, core.KindTool, "", nil)))
	}
	for _, to := range []string{"p1", "p2", "p3"} {
		require.NoError(t, g.AddEdge(Edge{From: "s", To: to}))
		require.NoError(t, g.AddEdge(Edge{From: to, To: "j"}))
	}
	return g
}

func TestAddNodeDuplicate(t *testing.T) {
	t.Parallel()

	g := New("g", "", "")
	require.NoError(t, g.AddNode(NewNode("a", core.KindTool, "", nil)))
	err := g.AddNode(NewNode("a", core.KindTool, "", nil))
	assert.ErrorIs(t, err, core.ErrInvalidGraph)
}

func TestAddEdgeUnknownEndpoint(t *testing.T) {
	t.Parallel()

	g := New("g", "", "")
	require.NoError(t, g.AddNode(NewNode("a", core.KindTool, "", nil)))
	assert.ErrorIs(t, g.AddEdge(Edge{From: "a", To: "missing"}), core.ErrInvalidGraph)
	assert.ErrorIs(t, g.AddEdge(Edge{From: "missing", To: "a"}), core.ErrInvalidGraph)
}

func TestGetStartNodes(t *testing.T) {
	t.Parallel()

	g := buildDiamond(t)
	starts := g.GetStartNodes()
	require.Len(t, starts, 1)
	assert.Equal(t, "s", starts[0].ID)

	// Explicit start set takes precedence when non-empty.
	g.StartNodes = []string{"s"}
	starts = g.GetStartNodes()
	require.Len(t, starts, 1)
	assert.Equal(t, "s", starts[0].ID)
}

func TestGetReadyNodes(t *testing.T) {
	t.Parallel()

	g := buildDiamond(t)

	ready := g.GetReadyNodes(map[string]struct{}{})
	require.Len(t, ready, 1)
	assert.Equal(t, "s", ready[0].ID)

	g.Node("s").Status = core.NodeCompleted
	ready = g.GetReadyNodes(g.CompletedSet())
	require.Len(t, ready, 3)

	for _, id := range []string{"p1", "p2", "p3"} {
		g.Node(id).Status = core.NodeCompleted
	}
	ready = g.GetReadyNodes(g.CompletedSet())
	require.Len(t, ready, 1)
	assert.Equal(t, "j", ready[0].ID)
}

func TestSkippedSatisfiesDependents(t *testing.T) {
	t.Parallel()

	g := New("g", "", "")
	require.NoError(t, g.AddNode(NewNode("a", core.KindTool, "", nil)))
	require.NoError(t, g.AddNode(NewNode("b", core.KindTool, "", nil)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))

	g.Node("a").Status = core.NodeSkipped
	ready := g.GetReadyNodes(g.CompletedSet())
	require.Len(t, ready, 1)
	assert.Equal(t, "b", ready[0].ID)
}

func TestHasCycle(t *testing.T) {
	t.Parallel()

	g := New("g", "", "")
	require.NoError(t, g.AddNode(NewNode("a", core.KindTool, "", nil)))
	require.NoError(t, g.AddNode(NewNode("b", core.KindTool, "", nil)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))
	assert.False(t, g.HasCycle())

	require.NoError(t, g.AddEdge(Edge{From: "b", To: "a"}))
	assert.True(t, g.HasCycle())
	assert.ErrorIs(t, g.Validate(), core.ErrInvalidGraph)
	assert.Nil(t, g.TopologicalSort())
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	g := buildDiamond(t)
	sorted := g.TopologicalSort()
	require.Len(t, sorted, 5)

	pos := map[string]int{}
	for i, id := range sorted {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, pos[e.From], pos[e.To], "%s must come before %s", e.From, e.To)
	}
}

func TestValidateStartSet(t *testing.T) {
	t.Parallel()

	g := buildDiamond(t)
	g.StartNodes = []string{"p1"}
	assert.ErrorIs(t, g.Validate(), core.ErrInvalidGraph)

	g.StartNodes = []string{"nope"}
	assert.ErrorIs(t, g.Validate(), core.ErrInvalidGraph)

	g.StartNodes = []string{"s"}
	assert.NoError(t, g.Validate())
}
