package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "orca.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedWorkflow(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateWorkflow(context.Background(), Workflow{
		WorkflowID: id,
		DagID:      "demo_dag",
		Name:       "Demo",
		Status:     core.WorkflowRunning,
		GraphJSON:  "{}",
	}, []WorkflowNode{
		{NodeID: "a", NodeType: core.KindTool},
		{NodeID: "b", NodeType: core.KindAgent, AgentID: "echo_agent"},
	})
	require.NoError(t, err)
}

func TestCreateAndGetWorkflow(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-1")

	wf, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "demo_dag", wf.DagID)
	assert.Equal(t, core.WorkflowRunning, wf.Status)
	assert.NotEmpty(t, wf.CreatedAt)

	nodes, err := s.GetWorkflowNodes(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "a", nodes[0].NodeID)
	assert.Equal(t, string(core.NodePending), nodes[0].Status)
	assert.Equal(t, "echo_agent", nodes[1].AgentID)
}

func TestCreateWorkflowRollsBackOnDuplicateNode(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.CreateWorkflow(ctx, Workflow{
		WorkflowID: "wf-dup",
		DagID:      "demo_dag",
		Name:       "Demo",
		Status:     core.WorkflowRunning,
		GraphJSON:  "{}",
	}, []WorkflowNode{
		{NodeID: "a", NodeType: core.KindTool},
		{NodeID: "a", NodeType: core.KindTool},
	})
	require.Error(t, err)

	_, err = s.GetWorkflow(ctx, "wf-dup")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeLifecycle(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-2")

	require.NoError(t, s.MarkNodeRunning(ctx, "wf-2", "a"))
	require.NoError(t, s.MarkNodeCompleted(ctx, "wf-2", "a", `{"ok":true}`))

	n, err := s.GetNode(ctx, "wf-2", "a")
	require.NoError(t, err)
	assert.Equal(t, string(core.NodeCompleted), n.Status)
	assert.Equal(t, `{"ok":true}`, n.Result)
	assert.NotEmpty(t, n.StartedAt)
	assert.NotEmpty(t, n.CompletedAt)

	require.NoError(t, s.MarkNodeWaiting(ctx, "wf-2", "b"))
	n, err = s.GetNode(ctx, "wf-2", "b")
	require.NoError(t, err)
	assert.Equal(t, core.WaitingHITL, n.Status)

	err = s.MarkNodeFailed(ctx, "wf-2", "missing", "boom")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinishWorkflowIsOneShot(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-3")

	done, err := s.FinishWorkflow(ctx, "wf-3", core.WorkflowCompleted, `{"a":1}`, "")
	require.NoError(t, err)
	assert.True(t, done)

	// A second terminal transition is refused.
	done, err = s.FinishWorkflow(ctx, "wf-3", core.WorkflowFailed, "", "late failure")
	require.NoError(t, err)
	assert.False(t, done)

	wf, err := s.GetWorkflow(ctx, "wf-3")
	require.NoError(t, err)
	assert.Equal(t, core.WorkflowCompleted, wf.Status)
	assert.Empty(t, wf.Error)
	assert.NotEmpty(t, wf.CompletedAt)

	events, err := s.GetEvents(ctx, "wf-3")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventWorkflowCompleted, events[0].EventType)
}

func TestEventOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-4")
	for _, ev := range []core.EventType{
		core.EventWorkflowStarted,
		core.EventNodeStarted,
		core.EventNodeCompleted,
	} {
		require.NoError(t, s.AppendEvent(ctx, "wf-4", ev, map[string]any{"node_id": "a"}))
	}

	events, err := s.GetEvents(ctx, "wf-4")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, core.EventWorkflowStarted, events[0].EventType)
	assert.Equal(t, core.EventNodeCompleted, events[2].EventType)
	assert.Less(t, events[0].ID, events[1].ID)
	assert.Less(t, events[1].ID, events[2].ID)
}

func TestHITLResolutionIsFirstWriterWins(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-5")
	require.NoError(t, s.CreateHITLRequest(ctx, HITLRequest{
		RequestID:  "req-1",
		WorkflowID: "wf-5",
		NodeID:     "b",
		Message:    "approve deploy?",
	}))

	pending, err := s.PendingHITLRequests(ctx, "wf-5")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "req-1", pending[0].RequestID)

	ok, err := s.ResolveHITLRequest(ctx, "req-1", core.HITLApproved, "alice", "lgtm")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ResolveHITLRequest(ctx, "req-1", core.HITLRejected, "bob", "no")
	require.NoError(t, err)
	assert.False(t, ok)

	req, err := s.GetHITLRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, core.HITLApproved, req.Status)
	assert.Equal(t, "alice", req.RespondedBy)
}

func TestRecoverOrphans(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-6")
	seedWorkflow(t, s, "wf-7")
	_, err := s.FinishWorkflow(ctx, "wf-7", core.WorkflowCompleted, "", "")
	require.NoError(t, err)

	ids, err := s.RecoverOrphans(ctx, "orchestrator restart")
	require.NoError(t, err)
	assert.Equal(t, []string{"wf-6"}, ids)

	wf, err := s.GetWorkflow(ctx, "wf-6")
	require.NoError(t, err)
	assert.Equal(t, core.WorkflowFailed, wf.Status)
	assert.Equal(t, "orchestrator restart", wf.Error)

	wf, err = s.GetWorkflow(ctx, "wf-7")
	require.NoError(t, err)
	assert.Equal(t, core.WorkflowCompleted, wf.Status)
}

func TestAgentExecutionAudit(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateAgentExecution(ctx, AgentExecution{
		ExecutionID: "ex-1",
		AgentID:     "echo_agent",
		WorkflowID:  "wf-8",
		NodeID:      "b",
		Input:       `{"message":"hi"}`,
	}))
	require.NoError(t, s.FinishAgentExecution(ctx, "ex-1", ExecCompleted, "hello", ""))

	execs, err := s.ListAgentExecutions(ctx, "echo_agent", 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, ExecCompleted, execs[0].Status)
	assert.Equal(t, "hello", execs[0].Output)
	assert.NotEmpty(t, execs[0].CompletedAt)
}

func TestMonitoringCounts(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedWorkflow(t, s, "wf-9")
	seedWorkflow(t, s, "wf-10")
	_, err := s.FinishWorkflow(ctx, "wf-10", core.WorkflowFailed, "", "boom")
	require.NoError(t, err)

	counts, err := s.CountWorkflows(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 1, counts.Running)
	assert.Equal(t, 1, counts.Failed)

	stats, err := s.StatsByDAG(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "demo_dag", stats[0].DagID)
	assert.Equal(t, 2, stats[0].Total)
	assert.Equal(t, 1, stats[0].Failed)
}

func TestSessionsAndPlanner(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, User{UserID: "u1", Username: "alice"}))
	require.NoError(t, s.CreateSession(ctx, Session{SessionID: "sess-1", UserID: "u1"}))
	require.NoError(t, s.TouchSession(ctx, "sess-1"))

	n, err := s.CountActiveUsers(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.AppendPlannerMessage(ctx, PlannerMessage{
		SessionID: "sess-1", Role: "user", Content: "plan a release",
	}))
	msgs, err := s.PlannerConversation(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "plan a release", msgs[0].Content)
}
