package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/llm"
	"github.com/orcabase/orca/internal/tool"
)

func mockDeps(t *testing.T) tool.Deps {
	t.Helper()
	// A missing config file routes every generation to the mock provider.
	m := llm.NewConfigManager(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	t.Cleanup(m.Stop)
	return tool.Deps{
		LLM:          llm.NewFacade(m),
		TemplatesDir: t.TempDir(),
	}
}

func build(t *testing.T, module, name string, config map[string]any, deps tool.Deps) tool.Tool {
	t.Helper()
	factory, ok := tool.Lookup(module)
	require.True(t, ok, "module %s not registered", module)
	tl, err := factory(name, config, deps)
	require.NoError(t, err)
	return tl
}

func TestEchoTool(t *testing.T) {
	t.Parallel()

	tl := build(t, "echo", "echo", nil, tool.Deps{})
	out, err := tl.Execute(context.Background(), map[string]any{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"echo": "hi"}, out)
}

func TestFilesystemTool(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	tl := build(t, "filesystem", "fs", map[string]any{"base_dir": base}, tool.Deps{})
	ctx := context.Background()

	_, err := tl.Execute(ctx, map[string]any{
		"operation": "write", "path": "notes/a.txt", "content": "hello",
	})
	require.NoError(t, err)

	out, err := tl.Execute(ctx, map[string]any{"operation": "read", "path": "notes/a.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out.(map[string]any)["content"])

	out, err = tl.Execute(ctx, map[string]any{"operation": "list", "path": "notes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, out.(map[string]any)["entries"])

	_, err = tl.Execute(ctx, map[string]any{"operation": "read", "path": "../../etc/passwd"})
	assert.Error(t, err)
}

func TestSummarizationTool(t *testing.T) {
	t.Parallel()

	tl := build(t, "llm_summarization", "summarize", nil, mockDeps(t))
	out, err := tl.Execute(context.Background(), map[string]any{"content": "a long text about orcas"})
	require.NoError(t, err)
	summary, _ := out.(map[string]any)["summary"].(string)
	assert.NotEmpty(t, summary)

	_, err = tl.Execute(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestSectionDraftingTool(t *testing.T) {
	t.Parallel()

	tl := build(t, "section_drafting", "draft", nil, mockDeps(t))
	out, err := tl.Execute(context.Background(), map[string]any{
		"section_title":       "Architecture",
		"section_description": "High level components",
	})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "Architecture", result["section_title"])
	assert.NotEmpty(t, result["draft"])
}

func TestTemplateManagerTool(t *testing.T) {
	t.Parallel()

	deps := mockDeps(t)
	require.NoError(t, os.WriteFile(
		filepath.Join(deps.TemplatesDir, "design_doc.json"),
		[]byte(`{"name": "design_doc", "sections": []}`), 0644))

	tl := build(t, "template_manager", "templates", nil, deps)
	ctx := context.Background()

	out, err := tl.Execute(ctx, map[string]any{"operation": "list"})
	require.NoError(t, err)
	assert.Equal(t, []string{"design_doc"}, out.(map[string]any)["templates"])

	out, err = tl.Execute(ctx, map[string]any{"operation": "get", "template_name": "design_doc"})
	require.NoError(t, err)
	assert.Equal(t, "design_doc", out.(map[string]any)["name"])

	_, err = tl.Execute(ctx, map[string]any{"operation": "get", "template_name": "missing"})
	assert.Error(t, err)
}

func TestDocumentAssemblerTool(t *testing.T) {
	t.Parallel()

	tl := build(t, "document_assembler", "assemble", nil, tool.Deps{})
	outputPath := filepath.Join(t.TempDir(), "out", "doc.md")

	out, err := tl.Execute(context.Background(), map[string]any{
		"title": "Runbook",
		"sections": map[string]any{
			"intro":   "## Intro\nWelcome.",
			"details": map[string]any{"draft": "## Details\nAll of them."},
		},
		"order":       []any{"intro", "details"},
		"output_path": outputPath,
	})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, 2, result["section_count"])

	doc := result["document"].(string)
	assert.Contains(t, doc, "# Runbook")
	assert.Less(t, strings.Index(doc, "Intro"), strings.Index(doc, "Details"))

	written, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, doc, string(written))
}
