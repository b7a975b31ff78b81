package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// Agent execution statuses recorded in the audit table.
const (
	ExecRunning   = "running"
	ExecCompleted = "completed"
	ExecFailed    = "failed"
)

// CreateAgentExecution records the start of an agent invocation.
func (s *Store) CreateAgentExecution(ctx context.Context, exec AgentExecution) error {
	_, err := s.exec(ctx, `
		INSERT INTO agent_executions
			(execution_id, agent_id, workflow_id, node_id, input, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exec.ExecutionID, exec.AgentID, exec.WorkflowID, exec.NodeID, exec.Input,
		ExecRunning, nowUTC())
	if err != nil {
		return fmt.Errorf("%w: failed to record agent execution: %s", core.ErrStore, err)
	}
	return nil
}

// FinishAgentExecution records the outcome of an agent invocation.
func (s *Store) FinishAgentExecution(ctx context.Context, executionID, status, output, errMsg string) error {
	_, err := s.exec(ctx, `
		UPDATE agent_executions SET status = ?, output = ?, error = ?, completed_at = ?
		WHERE execution_id = ?`,
		status, output, errMsg, nowUTC(), executionID)
	if err != nil {
		return fmt.Errorf("%w: failed to finish agent execution: %s", core.ErrStore, err)
	}
	return nil
}

// ListAgentExecutions returns executions for one agent, newest first.
func (s *Store) ListAgentExecutions(ctx context.Context, agentID string, limit int) ([]AgentExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.query(ctx, `
		SELECT id, execution_id, agent_id, workflow_id, node_id, input, output,
		       status, error, started_at, completed_at
		FROM agent_executions WHERE agent_id = ? ORDER BY id DESC LIMIT ?`,
		agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list agent executions: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []AgentExecution
	for rows.Next() {
		var (
			exec                  AgentExecution
			workflowID, nodeID    sql.NullString
			input, output, errMsg sql.NullString
			completedAt           sql.NullString
		)
		err := rows.Scan(&exec.ID, &exec.ExecutionID, &exec.AgentID, &workflowID,
			&nodeID, &input, &output, &exec.Status, &errMsg, &exec.StartedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan agent execution: %s", core.ErrStore, err)
		}
		exec.WorkflowID = nullStr(workflowID)
		exec.NodeID = nullStr(nodeID)
		exec.Input = nullStr(input)
		exec.Output = nullStr(output)
		exec.Error = nullStr(errMsg)
		exec.CompletedAt = nullStr(completedAt)
		out = append(out, exec)
	}
	return out, rows.Err()
}
