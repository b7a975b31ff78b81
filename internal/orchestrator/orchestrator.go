// Package orchestrator drives workflow executions: it launches graphs,
// runs ready nodes in parallel batches, parks on human gates, and moves
// workflows to their terminal state exactly once. Persistence goes
// through the store; the in-memory graph is the working copy.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orcabase/orca/internal/agent"
	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/dag"
	"github.com/orcabase/orca/internal/graph"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
	"github.com/orcabase/orca/internal/store"
	"github.com/orcabase/orca/internal/tool"
)

// nodeCancelled is the row status stamped on nodes abandoned by a
// cancelled workflow. The in-memory graph never uses it.
const nodeCancelled = "cancelled"

// Orchestrator owns the set of active workflow executions.
type Orchestrator struct {
	store    *store.Store
	dags     *dag.Registry
	tools    *tool.Registry
	agents   *agent.Registry
	debugDir string

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup

	mu     sync.Mutex
	active map[string]*execution
}

// execution is the live state of one workflow. The per-execution lock
// guards graph mutation and the single-driver flag.
type execution struct {
	workflowID string
	graph      *graph.Graph

	mu      sync.Mutex
	running bool
}

// New creates an orchestrator. Drivers inherit ctx; cancelling it stops
// all of them.
func New(ctx context.Context, st *store.Store, dags *dag.Registry, tools *tool.Registry, agents *agent.Registry, debugDir string) *Orchestrator {
	runCtx, cancel := context.WithCancel(ctx)
	return &Orchestrator{
		store:     st,
		dags:      dags,
		tools:     tools,
		agents:    agents,
		debugDir:  debugDir,
		runCtx:    runCtx,
		cancelRun: cancel,
		active:    map[string]*execution{},
	}
}

// StartRequest describes a workflow launch.
type StartRequest struct {
	DagID     string
	Name      string
	SessionID string
	CreatedBy string
	Params    map[string]any
}

// StartWorkflow materializes the registered DAG and launches it. The
// workflow id returns synchronously; execution proceeds in the
// background.
func (o *Orchestrator) StartWorkflow(ctx context.Context, req StartRequest) (string, error) {
	def, ok := o.dags.Get(req.DagID)
	if !ok {
		return "", fmt.Errorf("%w: unknown dag %q", core.ErrInvalidGraph, req.DagID)
	}
	params, err := def.ValidateParams(req.Params)
	if err != nil {
		return "", err
	}
	g, err := def.Materialize()
	if err != nil {
		return "", err
	}
	req.Params = params
	if req.Name == "" {
		req.Name = def.Name
	}
	return o.StartGraph(ctx, g, req)
}

// StartGraph launches an ad-hoc graph. Validation happens before any
// row is written, so a rejected launch leaves no trace.
func (o *Orchestrator) StartGraph(ctx context.Context, g *graph.Graph, req StartRequest) (string, error) {
	if g.Len() == 0 {
		return "", fmt.Errorf("%w: graph has no nodes", core.ErrInvalidGraph)
	}
	if err := g.Validate(); err != nil {
		return "", err
	}
	applyParams(g, req.Params)

	workflowID := uuid.NewString()
	snapshot, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("%w: failed to serialize graph: %s", core.ErrInvalidGraph, err)
	}

	dagID := req.DagID
	if dagID == "" {
		dagID = g.ID
	}
	var rows []store.WorkflowNode
	for _, id := range g.TopologicalSort() {
		n := g.Node(id)
		configJSON, err := store.MarshalResult(n.Config)
		if err != nil {
			return "", err
		}
		rows = append(rows, store.WorkflowNode{
			NodeID:   id,
			NodeType: n.Kind,
			AgentID:  n.AgentID,
			Config:   configJSON,
		})
	}

	err = o.store.CreateWorkflow(ctx, store.Workflow{
		WorkflowID:  workflowID,
		DagID:       dagID,
		SessionID:   req.SessionID,
		Name:        req.Name,
		Description: g.Description,
		Status:      core.WorkflowRunning,
		GraphJSON:   string(snapshot),
		CreatedBy:   req.CreatedBy,
	}, rows)
	if err != nil {
		return "", err
	}
	o.appendEvent(ctx, workflowID, core.EventWorkflowStarted, map[string]any{
		"dag_id": dagID,
		"params": req.Params,
	})

	exec := &execution{workflowID: workflowID, graph: g}
	o.mu.Lock()
	o.active[workflowID] = exec
	o.mu.Unlock()

	logger.Info(ctx, "Workflow started", tag.Workflow(workflowID), tag.DAG(dagID))
	o.spawnDriver(exec)
	return workflowID, nil
}

// ApproveHITL records an approval decision and resumes the workflow.
// Resolution is first-writer-wins: a request already decided keeps its
// prior outcome and the call is a no-op.
func (o *Orchestrator) ApproveHITL(ctx context.Context, workflowID, requestID, respondedBy, response string) error {
	exec, err := o.resume(ctx, workflowID)
	if err != nil {
		return err
	}
	req, err := o.store.GetHITLRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.WorkflowID != workflowID {
		return fmt.Errorf("%w: request %s belongs to another workflow", store.ErrNotFound, requestID)
	}

	won, err := o.store.ResolveHITLRequest(ctx, requestID, core.HITLApproved, respondedBy, response)
	if err != nil {
		return err
	}
	if !won {
		logger.Info(ctx, "Approval request already decided", tag.Workflow(workflowID), "request_id", requestID)
		return nil
	}

	result := map[string]any{"approved": true, "response": response}
	resultJSON, err := store.MarshalResult(result)
	if err != nil {
		return err
	}
	if err := o.store.MarkNodeCompleted(ctx, workflowID, req.NodeID, resultJSON); err != nil {
		return err
	}
	o.appendEvent(ctx, workflowID, core.EventHITLApproved, map[string]any{
		"request_id":   requestID,
		"node_id":      req.NodeID,
		"responded_by": respondedBy,
	})

	exec.mu.Lock()
	if n := exec.graph.Node(req.NodeID); n != nil {
		n.Status = core.NodeCompleted
		n.Result = result
	}
	exec.mu.Unlock()

	logger.Info(ctx, "Approval granted, resuming workflow",
		tag.Workflow(workflowID), tag.Node(req.NodeID))
	o.spawnDriver(exec)
	return nil
}

// RejectHITL records a rejection and fails the workflow. Like approval,
// resolution is first-writer-wins.
func (o *Orchestrator) RejectHITL(ctx context.Context, workflowID, requestID, respondedBy, reason string) error {
	exec, err := o.resume(ctx, workflowID)
	if err != nil {
		return err
	}
	req, err := o.store.GetHITLRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.WorkflowID != workflowID {
		return fmt.Errorf("%w: request %s belongs to another workflow", store.ErrNotFound, requestID)
	}

	won, err := o.store.ResolveHITLRequest(ctx, requestID, core.HITLRejected, respondedBy, reason)
	if err != nil {
		return err
	}
	if !won {
		logger.Info(ctx, "Approval request already decided", tag.Workflow(workflowID), "request_id", requestID)
		return nil
	}

	errMsg := "HITL rejected: " + reason
	if err := o.store.MarkNodeFailed(ctx, workflowID, req.NodeID, errMsg); err != nil {
		return err
	}
	o.appendEvent(ctx, workflowID, core.EventHITLRejected, map[string]any{
		"request_id":   requestID,
		"node_id":      req.NodeID,
		"responded_by": respondedBy,
		"reason":       reason,
	})

	exec.mu.Lock()
	if n := exec.graph.Node(req.NodeID); n != nil {
		n.Status = core.NodeFailed
		n.Error = errMsg
	}
	exec.mu.Unlock()

	o.failWorkflow(ctx, exec, errMsg)
	return nil
}

// Cancel moves a running workflow to failed with reason "cancelled".
// A driver in flight notices before its next batch; results of nodes
// still executing are discarded.
func (o *Orchestrator) Cancel(ctx context.Context, workflowID string) error {
	finished, err := o.store.FinishWorkflow(ctx, workflowID, core.WorkflowFailed, "", "cancelled")
	if err != nil {
		return err
	}
	if !finished {
		return fmt.Errorf("%w: %s", core.ErrWorkflowNotActive, workflowID)
	}
	logger.Info(ctx, "Workflow cancelled", tag.Workflow(workflowID))

	exec := o.lookup(workflowID)
	if exec == nil {
		return nil
	}
	exec.mu.Lock()
	parked := !exec.running
	exec.mu.Unlock()
	if parked {
		o.markAbandonedNodes(ctx, exec)
		o.saveSnapshot(ctx, exec)
		o.removeActive(workflowID)
	}
	return nil
}

// WorkflowState is the monitoring view of one workflow.
type WorkflowState struct {
	Workflow *store.Workflow
	Nodes    []store.WorkflowNode
}

// GetWorkflowStatus returns the workflow row and all of its node rows.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, workflowID string) (*WorkflowState, error) {
	wf, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	nodes, err := o.store.GetWorkflowNodes(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return &WorkflowState{Workflow: wf, Nodes: nodes}, nil
}

// PendingHITL lists undecided approval requests, optionally scoped to
// one workflow.
func (o *Orchestrator) PendingHITL(ctx context.Context, workflowID string) ([]store.HITLRequest, error) {
	return o.store.PendingHITLRequests(ctx, workflowID)
}

// ActiveWorkflows returns the ids of workflows currently held in memory,
// running or parked.
func (o *Orchestrator) ActiveWorkflows() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.active))
	for id := range o.active {
		out = append(out, id)
	}
	return out
}

// Recover fails every workflow left running by a previous process.
// Called once at startup, before any new workflow is accepted.
func (o *Orchestrator) Recover(ctx context.Context) ([]string, error) {
	ids, err := o.store.RecoverOrphans(ctx, "orchestrator restart")
	if len(ids) > 0 {
		logger.Info(ctx, "Recovered orphaned workflows", "count", len(ids))
	}
	return ids, err
}

// Shutdown stops all drivers and waits for them to exit, bounded by ctx.
// Workflows still running stay running in the store and are recovered on
// the next start.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancelRun()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) lookup(workflowID string) *execution {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[workflowID]
}

// resume returns the live execution, restoring a parked workflow from
// its graph snapshot when this process does not hold it in memory.
// Terminal workflows are not restorable; a stale active entry for one
// is cleaned up here.
func (o *Orchestrator) resume(ctx context.Context, workflowID string) (*execution, error) {
	wf, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status.IsTerminal() {
		if exec := o.lookup(workflowID); exec != nil {
			o.markAbandonedNodes(ctx, exec)
			o.saveSnapshot(ctx, exec)
			o.removeActive(workflowID)
		}
		return nil, fmt.Errorf("%w: %s", core.ErrWorkflowNotActive, workflowID)
	}
	if exec := o.lookup(workflowID); exec != nil {
		return exec, nil
	}
	g, err := graph.FromJSON([]byte(wf.GraphJSON))
	if err != nil {
		return nil, err
	}

	exec := &execution{workflowID: workflowID, graph: g}
	o.mu.Lock()
	if existing, ok := o.active[workflowID]; ok {
		exec = existing
	} else {
		o.active[workflowID] = exec
	}
	o.mu.Unlock()
	logger.Info(ctx, "Workflow restored from snapshot", tag.Workflow(workflowID))
	return exec, nil
}

func (o *Orchestrator) removeActive(workflowID string) {
	o.mu.Lock()
	delete(o.active, workflowID)
	o.mu.Unlock()
}

func (o *Orchestrator) appendEvent(ctx context.Context, workflowID string, event core.EventType, data map[string]any) {
	if err := o.store.AppendEvent(ctx, workflowID, event, data); err != nil {
		logger.Warn(ctx, "Failed to append event", tag.Workflow(workflowID), tag.Error(err))
	}
}
