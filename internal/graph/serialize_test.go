package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
)

func TestRoundTripByteIdentical(t *testing.T) {
	t.Parallel()

	g := buildDiamond(t)
	g.StartNodes = []string{"s"}
	g.Node("s").Status = core.NodeCompleted
	g.Node("s").Result = map[string]any{"msg": "hi", "n": float64(3)}

	first, err := json.Marshal(g)
	require.NoError(t, err)

	restored, err := FromJSON(first)
	require.NoError(t, err)

	second, err := json.Marshal(restored)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestRoundTripPreservesState(t *testing.T) {
	t.Parallel()

	g := New("g1", "Name", "Desc")
	require.NoError(t, g.AddNode(NewNode("a", core.KindAgent, "echo_agent", map[string]any{
		"input": map[string]any{"msg": "hello"},
	})))
	require.NoError(t, g.AddNode(NewNode("b", core.KindHITL, "", nil)))
	require.NoError(t, g.AddEdge(Edge{From: "a", To: "b"}))
	g.Node("a").Status = core.NodeFailed
	g.Node("a").Error = "boom"

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, "g1", restored.ID)
	assert.Equal(t, "Name", restored.Name)

	a := restored.Node("a")
	require.NotNil(t, a)
	assert.Equal(t, core.KindAgent, a.Kind)
	assert.Equal(t, "echo_agent", a.AgentID)
	assert.Equal(t, core.NodeFailed, a.Status)
	assert.Equal(t, "boom", a.Error)

	b := restored.Node("b")
	require.NotNil(t, b)
	assert.Contains(t, b.Dependencies, "a")
	assert.Contains(t, a.Dependents, "b")
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := FromJSON([]byte("not json"))
	assert.ErrorIs(t, err, core.ErrInvalidGraph)
}
