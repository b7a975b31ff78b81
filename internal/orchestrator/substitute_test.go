package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/graph"
)

func resultGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("sub", "", "")
	done := graph.NewNode("done", core.KindTool, "", nil)
	done.Status = core.NodeCompleted
	done.Result = map[string]any{
		"text":  "hello",
		"count": float64(3),
		"inner": map[string]any{"deep": "value"},
	}
	pending := graph.NewNode("pending", core.KindTool, "", nil)
	require.NoError(t, g.AddNode(done))
	require.NoError(t, g.AddNode(pending))
	return g
}

func TestSubstituteWholeStringTyped(t *testing.T) {
	t.Parallel()
	g := resultGraph(t)

	out, err := substituteInput(map[string]any{
		"whole": "{done.result}",
		"count": "{done.result.count}",
		"deep":  "{done.result.inner.deep}",
	}, g)
	require.NoError(t, err)

	m := out.(map[string]any)
	assert.Equal(t, float64(3), m["count"])
	assert.Equal(t, "value", m["deep"])
	whole := m["whole"].(map[string]any)
	assert.Equal(t, "hello", whole["text"])
}

func TestSubstituteEmbeddedString(t *testing.T) {
	t.Parallel()
	g := resultGraph(t)

	out, err := substituteInput("say {done.result.text} twice: {done.result.text}", g)
	require.NoError(t, err)
	assert.Equal(t, "say hello twice: hello", out)
}

func TestSubstituteEmbeddedNonStringFails(t *testing.T) {
	t.Parallel()
	g := resultGraph(t)

	_, err := substituteInput("count is {done.result.count}", g)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSubstitution)
}

func TestSubstituteUnresolvedLeftInPlace(t *testing.T) {
	t.Parallel()
	g := resultGraph(t)

	for _, ref := range []string{
		"{ghost.result}",           // unknown node
		"{pending.result}",         // not completed
		"{done.result.missing}",    // missing key
		"{done.result.text.wrong}", // path into a scalar
	} {
		out, err := substituteInput(ref, g)
		require.NoError(t, err)
		assert.Equal(t, ref, out)
	}
}

func TestSubstituteNestedStructures(t *testing.T) {
	t.Parallel()
	g := resultGraph(t)

	out, err := substituteInput(map[string]any{
		"list": []any{"{done.result.text}", map[string]any{"v": "{done.result.count}"}},
	}, g)
	require.NoError(t, err)

	list := out.(map[string]any)["list"].([]any)
	assert.Equal(t, "hello", list[0])
	assert.Equal(t, float64(3), list[1].(map[string]any)["v"])
}

func TestSubstituteSinglePass(t *testing.T) {
	t.Parallel()
	g := graph.New("sub", "", "")
	n := graph.NewNode("a", core.KindTool, "", nil)
	n.Status = core.NodeCompleted
	n.Result = map[string]any{"ref": "{a.result.ref}"}
	require.NoError(t, g.AddNode(n))

	out, err := substituteInput("{a.result.ref}", g)
	require.NoError(t, err)
	// The replacement itself is not re-expanded.
	assert.Equal(t, "{a.result.ref}", out)
}

func TestApplyParams(t *testing.T) {
	t.Parallel()

	g := graph.New("p", "", "")
	n := graph.NewNode("n", core.KindTool, "", map[string]any{
		"tool_name": "echo",
		"input": map[string]any{
			"path":    "{params.codebase_path}",
			"message": "scanning {params.codebase_path} at depth {params.depth}",
			"depth":   "{params.depth}",
			"keep":    "{params.unknown}",
		},
	})
	require.NoError(t, g.AddNode(n))

	applyParams(g, map[string]any{"codebase_path": "/src", "depth": 2})

	input := g.Node("n").Config["input"].(map[string]any)
	assert.Equal(t, "/src", input["path"])
	assert.Equal(t, "scanning /src at depth 2", input["message"])
	assert.Equal(t, 2, input["depth"])
	assert.Equal(t, "{params.unknown}", input["keep"])
}
