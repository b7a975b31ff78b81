package agent

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/llm"
	"github.com/orcabase/orca/internal/store"
)

func mockFacade(t *testing.T) *llm.Facade {
	t.Helper()
	m := llm.NewConfigManager(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	t.Cleanup(m.Stop)
	return llm.NewFacade(m)
}

func writeDescriptor(t *testing.T, dir string, d Descriptor) {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, d.AgentID+".json"), data, 0644))
}

func newTestRegistry(t *testing.T, st *store.Store) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	return NewRegistry(dir, mockFacade(t), st), dir
}

func TestLoadAndExecute(t *testing.T) {
	t.Parallel()

	r, dir := newTestRegistry(t, nil)
	writeDescriptor(t, dir, Descriptor{
		AgentID: "echo_agent", Name: "Echo", Enabled: true,
		LLMProvider: "mock", LLMModel: "mock-default",
	})
	require.Empty(t, r.Load(context.Background()))

	res := r.ExecuteAgent(context.Background(), "echo_agent",
		map[string]any{"message": "hello agent"}, ExecutionMeta{})
	assert.True(t, res.Success)
	assert.Contains(t, res.Response, "hello agent")
	assert.Equal(t, "mock", res.LLMUsed["provider"])
}

func TestExecuteUnknownAgent(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(t, nil)
	r.Load(context.Background())

	res := r.ExecuteAgent(context.Background(), "ghost", nil, ExecutionMeta{})
	assert.False(t, res.Success)
	assert.Equal(t, "Agent not found: ghost", res.Error)
}

func TestExecuteDisabledAgent(t *testing.T) {
	t.Parallel()

	r, dir := newTestRegistry(t, nil)
	writeDescriptor(t, dir, Descriptor{AgentID: "off_agent", Enabled: false})
	r.Load(context.Background())

	res := r.ExecuteAgent(context.Background(), "off_agent", nil, ExecutionMeta{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disabled")
}

func TestLoadSkipsBadFiles(t *testing.T) {
	t.Parallel()

	r, dir := newTestRegistry(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noid.json"), []byte("{}"), 0644))
	writeDescriptor(t, dir, Descriptor{AgentID: "good_agent", Enabled: true})

	errs := r.Load(context.Background())
	assert.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, core.ErrInvalidDescriptor)
	}
	_, ok := r.Get("good_agent")
	assert.True(t, ok)
}

func TestAuthorized(t *testing.T) {
	t.Parallel()

	r, dir := newTestRegistry(t, nil)
	writeDescriptor(t, dir, Descriptor{
		AgentID: "admin_agent", Enabled: true, ApprovedRoles: []string{"admin"},
	})
	writeDescriptor(t, dir, Descriptor{AgentID: "open_agent", Enabled: true})
	r.Load(context.Background())

	assert.True(t, r.Authorized("admin_agent", "admin"))
	assert.False(t, r.Authorized("admin_agent", "user"))
	assert.True(t, r.Authorized("open_agent", "user"))
	assert.False(t, r.Authorized("ghost", "admin"))
}

func TestExecutionAuditRecorded(t *testing.T) {
	t.Parallel()

	st, err := store.Open(context.Background(), store.DriverSQLite,
		filepath.Join(t.TempDir(), "orca.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	r, dir := newTestRegistry(t, st)
	writeDescriptor(t, dir, Descriptor{AgentID: "audited_agent", Enabled: true})
	r.Load(context.Background())

	res := r.ExecuteAgent(context.Background(), "audited_agent",
		map[string]any{"message": "do the thing"},
		ExecutionMeta{WorkflowID: "wf-1", NodeID: "n1"})
	require.True(t, res.Success)

	execs, err := st.ListAgentExecutions(context.Background(), "audited_agent", 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, store.ExecCompleted, execs[0].Status)
	assert.Equal(t, "wf-1", execs[0].WorkflowID)
	assert.Contains(t, execs[0].Input, "do the thing")
	assert.NotEmpty(t, execs[0].Output)
}
