package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
)

func init() {
	Register("static", func(name string, config map[string]any, _ Deps) (Tool, error) {
		reply, _ := config["reply"].(string)
		return &staticTool{name: name, reply: reply}, nil
	})
	Register("broken", func(string, map[string]any, Deps) (Tool, error) {
		return nil, fmt.Errorf("constructor exploded")
	})
}

type staticTool struct {
	name  string
	reply string
}

func (t *staticTool) Name() string { return t.name }
func (t *staticTool) Execute(context.Context, map[string]any) (any, error) {
	return map[string]any{"reply": t.reply}, nil
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newTestRegistry(t *testing.T) (*Registry, string, string) {
	t.Helper()
	toolsDir := t.TempDir()
	mcpDir := t.TempDir()
	return NewRegistry(toolsDir, mcpDir, Deps{}), toolsDir, mcpDir
}

func TestLoadAndExecuteLocalTool(t *testing.T) {
	t.Parallel()

	r, toolsDir, _ := newTestRegistry(t)
	writeJSON(t, toolsDir, "greeter.json", LocalDescriptor{
		Name: "greeter", Module: "static",
		Config: map[string]any{"reply": "hello"}, Enabled: true,
	})

	errs := r.Load(context.Background())
	assert.Empty(t, errs)

	env := r.Execute(context.Background(), "greeter", nil)
	assert.True(t, env.Success)
	assert.Equal(t, "greeter", env.ToolName)
	assert.NotEmpty(t, env.ExecutedAt)
	result, ok := env.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", result["reply"])
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRegistry(t)
	r.Load(context.Background())

	env := r.Execute(context.Background(), "nope", nil)
	assert.False(t, env.Success)
	assert.Equal(t, "Tool not found: nope", env.Error)
	assert.Equal(t, "nope", env.ToolName)
}

func TestDisabledToolNotInstantiated(t *testing.T) {
	t.Parallel()

	r, toolsDir, _ := newTestRegistry(t)
	writeJSON(t, toolsDir, "off.json", LocalDescriptor{
		Name: "off", Module: "static", Enabled: false,
	})
	r.Load(context.Background())

	env := r.Execute(context.Background(), "off", nil)
	assert.False(t, env.Success)

	// The descriptor is still listed.
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "off", list[0].Name)
	assert.False(t, list[0].Enabled)
}

func TestLoadSkipsBadDescriptors(t *testing.T) {
	t.Parallel()

	r, toolsDir, _ := newTestRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(toolsDir, "garbage.json"), []byte("{nope"), 0644))
	writeJSON(t, toolsDir, "unknown.json", LocalDescriptor{
		Name: "unknown", Module: "no_such_module", Enabled: true,
	})
	writeJSON(t, toolsDir, "exploding.json", LocalDescriptor{
		Name: "exploding", Module: "broken", Enabled: true,
	})
	writeJSON(t, toolsDir, "good.json", LocalDescriptor{
		Name: "good", Module: "static", Enabled: true,
	})

	errs := r.Load(context.Background())
	assert.Len(t, errs, 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, core.ErrInvalidDescriptor)
	}

	// The good tool still loads.
	env := r.Execute(context.Background(), "good", nil)
	assert.True(t, env.Success)
}

func TestSetEnabledPersistsAndReloads(t *testing.T) {
	t.Parallel()

	r, toolsDir, _ := newTestRegistry(t)
	path := writeJSON(t, toolsDir, "toggle.json", LocalDescriptor{
		Name: "toggle", Module: "static", Enabled: true,
	})
	r.Load(context.Background())
	assert.True(t, r.Execute(context.Background(), "toggle", nil).Success)

	require.NoError(t, r.SetEnabled(context.Background(), "toggle", false))
	assert.False(t, r.Execute(context.Background(), "toggle", nil).Success)

	// The flag survives on disk.
	d, err := readLocalDescriptor(path)
	require.NoError(t, err)
	assert.False(t, d.Enabled)

	require.NoError(t, r.SetEnabled(context.Background(), "toggle", true))
	assert.True(t, r.Execute(context.Background(), "toggle", nil).Success)
}

func TestReloadIsIdempotent(t *testing.T) {
	t.Parallel()

	r, toolsDir, _ := newTestRegistry(t)
	writeJSON(t, toolsDir, "greeter.json", LocalDescriptor{
		Name: "greeter", Module: "static", Enabled: true,
	})
	r.Load(context.Background())
	r.Load(context.Background())

	assert.Len(t, r.List(), 1)
	assert.True(t, r.Execute(context.Background(), "greeter", nil).Success)
}
