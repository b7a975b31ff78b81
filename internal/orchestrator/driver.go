package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/orcabase/orca/internal/agent"
	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/graph"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
	"github.com/orcabase/orca/internal/store"
)

// spawnDriver starts the workflow driver if one is not already running.
// The single-driver flag makes approval arriving during a batch safe:
// the live driver picks the completed gate up on its next pass.
func (o *Orchestrator) spawnDriver(exec *execution) {
	exec.mu.Lock()
	if exec.running {
		exec.mu.Unlock()
		return
	}
	exec.running = true
	exec.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runDriver(exec)
	}()
}

// runDriver executes ready nodes in parallel batches until the workflow
// reaches a terminal state or parks on a human gate. Exactly one driver
// runs per workflow at a time.
func (o *Orchestrator) runDriver(exec *execution) {
	ctx := o.runCtx
	stop := func() {
		exec.mu.Lock()
		exec.running = false
		exec.mu.Unlock()
	}

	for {
		if ctx.Err() != nil {
			stop()
			return
		}

		wf, err := o.store.GetWorkflow(ctx, exec.workflowID)
		if err != nil {
			logger.Error(ctx, "Failed to read workflow state",
				tag.Workflow(exec.workflowID), tag.Error(err))
			// Best effort: if the store recovered, record the failure.
			// During shutdown the workflow stays running in the store and
			// restart recovery picks it up instead.
			if ctx.Err() == nil {
				o.failWorkflow(ctx, exec, "store error: "+err.Error())
			}
			stop()
			return
		}
		if wf.Status.IsTerminal() {
			o.markAbandonedNodes(ctx, exec)
			o.saveSnapshot(ctx, exec)
			o.removeActive(exec.workflowID)
			stop()
			return
		}

		exec.mu.Lock()
		ready := exec.graph.GetReadyNodes(exec.graph.CompletedSet())
		waitingGate := hasWaitingGate(exec.graph)
		exec.mu.Unlock()

		var batch, gates []*graph.Node
		for _, n := range ready {
			if n.Kind == core.KindHITL {
				gates = append(gates, n)
			} else {
				batch = append(batch, n)
			}
		}

		if len(batch) == 0 {
			switch {
			case len(gates) > 0:
				if !o.parkOnGates(ctx, exec, gates) {
					stop()
					return
				}
				if o.parkAndMaybeResume(exec) {
					continue
				}
				o.reapIfTerminal(ctx, exec)
				return
			case waitingGate:
				// Parked on an earlier gate; a decision respawns us.
				if o.parkAndMaybeResume(exec) {
					continue
				}
				o.reapIfTerminal(ctx, exec)
				return
			case allTerminal(exec):
				o.finishWorkflow(ctx, exec)
				stop()
				return
			default:
				o.failWorkflow(ctx, exec, "no progress possible")
				stop()
				return
			}
		}

		var wg sync.WaitGroup
		for _, n := range batch {
			wg.Add(1)
			go func(n *graph.Node) {
				defer wg.Done()
				o.executeNode(ctx, exec, n)
			}(n)
		}
		wg.Wait()

		o.saveSnapshot(ctx, exec)

		if nodeID, errMsg, fatal := fatalFailure(exec); fatal {
			o.failWorkflow(ctx, exec, fmt.Sprintf("node %s failed: %s", nodeID, errMsg))
			stop()
			return
		}
	}
}

// parkAndMaybeResume clears the running flag and rechecks the graph
// under the same lock. A decision that landed while the driver was
// parking would otherwise be a lost wakeup: its spawnDriver call saw the
// flag still set, and nobody else would resume the workflow.
func (o *Orchestrator) parkAndMaybeResume(exec *execution) bool {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	exec.running = false

	if len(exec.graph.GetReadyNodes(exec.graph.CompletedSet())) > 0 {
		exec.running = true
		return true
	}
	for _, n := range exec.graph.Nodes() {
		if !n.Status.IsTerminal() {
			return false
		}
	}
	exec.running = true
	return true
}

func skipOnFailure(n *graph.Node) bool {
	policy, _ := n.Config["on_failure"].(string)
	return policy == "skip"
}

// hasWaitingGate reports whether a human gate is still undecided. Gate
// nodes stay running in memory while their request is pending.
func hasWaitingGate(g *graph.Graph) bool {
	for _, n := range g.Nodes() {
		if n.Kind == core.KindHITL && n.Status == core.NodeRunning {
			return true
		}
	}
	return false
}

func allTerminal(exec *execution) bool {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	for _, n := range exec.graph.Nodes() {
		if !n.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// fatalFailure returns the first failed node whose failure is not
// absorbed by a skip policy.
func fatalFailure(exec *execution) (string, string, bool) {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	for _, id := range exec.graph.TopologicalSort() {
		n := exec.graph.Node(id)
		if n.Status == core.NodeFailed && !skipOnFailure(n) {
			return n.ID, n.Error, true
		}
	}
	return "", "", false
}

// parkOnGates creates an approval request per ready gate and parks the
// workflow. The execution stays in the active set; approval respawns
// the driver. A store failure here fails the workflow: an unrecorded
// gate could never be approved, and the gate would stay ready forever.
func (o *Orchestrator) parkOnGates(ctx context.Context, exec *execution, gates []*graph.Node) bool {
	for _, n := range gates {
		message, _ := n.Config["message"].(string)
		requestID := uuid.NewString()

		if err := o.store.CreateHITLRequest(ctx, store.HITLRequest{
			RequestID:  requestID,
			WorkflowID: exec.workflowID,
			NodeID:     n.ID,
			Message:    message,
		}); err != nil {
			logger.Error(ctx, "Failed to create approval request",
				tag.Workflow(exec.workflowID), tag.Node(n.ID), tag.Error(err))
			o.failWorkflow(ctx, exec, "store error: "+err.Error())
			return false
		}
		if err := o.store.MarkNodeWaiting(ctx, exec.workflowID, n.ID); err != nil {
			logger.Warn(ctx, "Failed to mark node waiting",
				tag.Workflow(exec.workflowID), tag.Node(n.ID), tag.Error(err))
		}
		o.appendEvent(ctx, exec.workflowID, core.EventHITLRequested, map[string]any{
			"request_id": requestID,
			"node_id":    n.ID,
			"message":    message,
		})

		exec.mu.Lock()
		n.Status = core.NodeRunning
		exec.mu.Unlock()

		logger.Info(ctx, "Workflow parked on human gate",
			tag.Workflow(exec.workflowID), tag.Node(n.ID), "request_id", requestID)
	}
	o.saveSnapshot(ctx, exec)
	return true
}

// reapIfTerminal cleans up after a park decision that raced a terminal
// transition. Cancel skips cleanup when it observes a live driver, so
// the parking driver takes a final look before it goes away.
func (o *Orchestrator) reapIfTerminal(ctx context.Context, exec *execution) {
	if !o.workflowTerminal(ctx, exec.workflowID) {
		return
	}
	o.markAbandonedNodes(ctx, exec)
	o.saveSnapshot(ctx, exec)
	o.removeActive(exec.workflowID)
}

// executeNode dispatches one node by kind and records the outcome.
func (o *Orchestrator) executeNode(ctx context.Context, exec *execution, n *graph.Node) {
	exec.mu.Lock()
	n.Status = core.NodeRunning
	input, subErr := substituteInput(n.Config["input"], exec.graph)
	exec.mu.Unlock()

	if err := o.store.MarkNodeRunning(ctx, exec.workflowID, n.ID); err != nil {
		logger.Warn(ctx, "Failed to mark node running",
			tag.Workflow(exec.workflowID), tag.Node(n.ID), tag.Error(err))
	}
	o.appendEvent(ctx, exec.workflowID, core.EventNodeStarted, map[string]any{"node_id": n.ID})

	if subErr != nil {
		o.failNode(ctx, exec, n, subErr.Error())
		return
	}

	switch n.Kind {
	case core.KindTool:
		toolName, _ := n.Config["tool_name"].(string)
		if toolName == "" {
			o.failNode(ctx, exec, n, "No tool_name specified")
			return
		}
		args := asArgs(input)
		args["workflow_id"] = exec.workflowID
		args["node_id"] = n.ID
		if o.debugDir != "" {
			args["debug_dir"] = o.debugDir
		}
		env := o.tools.Execute(ctx, toolName, args)
		if !env.Success {
			o.failNode(ctx, exec, n, env.Error)
			return
		}
		o.completeNode(ctx, exec, n, env.Result)

	case core.KindAgent:
		agentID, _ := n.Config["agent_id"].(string)
		if agentID == "" {
			agentID = n.AgentID
		}
		if agentID == "" {
			o.failNode(ctx, exec, n, "No agent_id specified")
			return
		}
		res := o.agents.ExecuteAgent(ctx, agentID, asArgs(input), agent.ExecutionMeta{
			WorkflowID: exec.workflowID,
			NodeID:     n.ID,
		})
		if !res.Success {
			o.failNode(ctx, exec, n, res.Error)
			return
		}
		o.completeNode(ctx, exec, n, map[string]any{
			"response": res.Response,
			"llm_used": res.LLMUsed,
		})

	case core.KindDecision:
		// Decision nodes pass their substituted input through; guard
		// evaluation is reserved for future routing.
		result := input
		if result == nil {
			result = map[string]any{"decision": "pass"}
		}
		o.completeNode(ctx, exec, n, result)

	default:
		o.failNode(ctx, exec, n, fmt.Sprintf("unsupported node type %q", n.Kind))
	}
}

// completeNode persists a node success. Results arriving after the
// workflow turned terminal are discarded.
func (o *Orchestrator) completeNode(ctx context.Context, exec *execution, n *graph.Node, result any) {
	if o.workflowTerminal(ctx, exec.workflowID) {
		return
	}
	resultJSON, err := store.MarshalResult(result)
	if err != nil {
		o.failNode(ctx, exec, n, err.Error())
		return
	}
	if err := o.store.MarkNodeCompleted(ctx, exec.workflowID, n.ID, resultJSON); err != nil {
		logger.Warn(ctx, "Failed to persist node result",
			tag.Workflow(exec.workflowID), tag.Node(n.ID), tag.Error(err))
	}
	o.appendEvent(ctx, exec.workflowID, core.EventNodeCompleted, map[string]any{"node_id": n.ID})

	exec.mu.Lock()
	n.Status = core.NodeCompleted
	n.Result = result
	exec.mu.Unlock()

	logger.Debug(ctx, "Node completed", tag.Workflow(exec.workflowID), tag.Node(n.ID))
}

func (o *Orchestrator) failNode(ctx context.Context, exec *execution, n *graph.Node, errMsg string) {
	if o.workflowTerminal(ctx, exec.workflowID) {
		return
	}
	if err := o.store.MarkNodeFailed(ctx, exec.workflowID, n.ID, errMsg); err != nil {
		logger.Warn(ctx, "Failed to persist node failure",
			tag.Workflow(exec.workflowID), tag.Node(n.ID), tag.Error(err))
	}
	o.appendEvent(ctx, exec.workflowID, core.EventNodeFailed, map[string]any{
		"node_id": n.ID,
		"error":   errMsg,
	})

	exec.mu.Lock()
	n.Status = core.NodeFailed
	n.Error = errMsg
	exec.mu.Unlock()

	logger.Warn(ctx, "Node failed",
		tag.Workflow(exec.workflowID), tag.Node(n.ID), "node_error", errMsg)
}

func (o *Orchestrator) workflowTerminal(ctx context.Context, workflowID string) bool {
	wf, err := o.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return false
	}
	return wf.Status.IsTerminal()
}

// finishWorkflow completes a workflow whose nodes all reached a terminal
// state. The aggregate result maps node ids to their results.
func (o *Orchestrator) finishWorkflow(ctx context.Context, exec *execution) {
	exec.mu.Lock()
	results := make(map[string]any)
	for id, n := range exec.graph.Nodes() {
		if n.Status == core.NodeCompleted {
			results[id] = n.Result
		}
	}
	exec.mu.Unlock()

	resultJSON, err := store.MarshalResult(results)
	if err != nil {
		o.failWorkflow(ctx, exec, err.Error())
		return
	}
	finished, err := o.store.FinishWorkflow(ctx, exec.workflowID, core.WorkflowCompleted, resultJSON, "")
	if err != nil {
		logger.Error(ctx, "Failed to finish workflow",
			tag.Workflow(exec.workflowID), tag.Error(err))
	}
	if finished {
		logger.Info(ctx, "Workflow completed", tag.Workflow(exec.workflowID))
	}
	o.saveSnapshot(ctx, exec)
	o.removeActive(exec.workflowID)
}

func (o *Orchestrator) failWorkflow(ctx context.Context, exec *execution, reason string) {
	finished, err := o.store.FinishWorkflow(ctx, exec.workflowID, core.WorkflowFailed, "", reason)
	if err != nil {
		logger.Error(ctx, "Failed to fail workflow",
			tag.Workflow(exec.workflowID), tag.Error(err))
	}
	if finished {
		logger.Warn(ctx, "Workflow failed", tag.Workflow(exec.workflowID), "reason", reason)
	}
	o.markAbandonedNodes(ctx, exec)
	o.saveSnapshot(ctx, exec)
	o.removeActive(exec.workflowID)
}

// markAbandonedNodes stamps node rows left behind by a terminal
// workflow. In-flight results were discarded; the rows record that the
// nodes were cancelled rather than finished.
func (o *Orchestrator) markAbandonedNodes(ctx context.Context, exec *execution) {
	exec.mu.Lock()
	var abandoned []string
	for id, n := range exec.graph.Nodes() {
		if n.Status == core.NodePending || n.Status == core.NodeRunning {
			abandoned = append(abandoned, id)
		}
	}
	exec.mu.Unlock()

	for _, id := range abandoned {
		err := o.store.UpdateNode(ctx, exec.workflowID, id, store.NodeUpdate{Status: nodeCancelled})
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			logger.Warn(ctx, "Failed to mark node cancelled",
				tag.Workflow(exec.workflowID), tag.Node(id), tag.Error(err))
		}
	}
}

func (o *Orchestrator) saveSnapshot(ctx context.Context, exec *execution) {
	exec.mu.Lock()
	snapshot, err := json.Marshal(exec.graph)
	exec.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, "Failed to serialize graph snapshot",
			tag.Workflow(exec.workflowID), tag.Error(err))
		return
	}
	if err := o.store.SaveGraphSnapshot(ctx, exec.workflowID, string(snapshot)); err != nil {
		logger.Warn(ctx, "Failed to save graph snapshot",
			tag.Workflow(exec.workflowID), tag.Error(err))
	}
}

// asArgs normalizes a substituted input into a tool argument map.
func asArgs(input any) map[string]any {
	switch v := input.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = item
		}
		return out
	default:
		return map[string]any{"input": v}
	}
}
