package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// NodeUpdate carries the column changes for a single node row. Nil
// pointers leave the column as is.
type NodeUpdate struct {
	Status      string
	Result      *string
	Error       *string
	StartedAt   *string
	CompletedAt *string
}

// MarkNodeRunning stamps the node running with a start timestamp.
func (s *Store) MarkNodeRunning(ctx context.Context, workflowID, nodeID string) error {
	now := nowUTC()
	return s.UpdateNode(ctx, workflowID, nodeID, NodeUpdate{
		Status:    string(core.NodeRunning),
		StartedAt: &now,
	})
}

// MarkNodeCompleted stamps the node completed with its result.
func (s *Store) MarkNodeCompleted(ctx context.Context, workflowID, nodeID, result string) error {
	now := nowUTC()
	return s.UpdateNode(ctx, workflowID, nodeID, NodeUpdate{
		Status:      string(core.NodeCompleted),
		Result:      &result,
		CompletedAt: &now,
	})
}

// MarkNodeFailed stamps the node failed with its error message.
func (s *Store) MarkNodeFailed(ctx context.Context, workflowID, nodeID, errMsg string) error {
	now := nowUTC()
	return s.UpdateNode(ctx, workflowID, nodeID, NodeUpdate{
		Status:      string(core.NodeFailed),
		Error:       &errMsg,
		CompletedAt: &now,
	})
}

// MarkNodeSkipped stamps the node skipped.
func (s *Store) MarkNodeSkipped(ctx context.Context, workflowID, nodeID string) error {
	now := nowUTC()
	return s.UpdateNode(ctx, workflowID, nodeID, NodeUpdate{
		Status:      string(core.NodeSkipped),
		CompletedAt: &now,
	})
}

// MarkNodeWaiting parks the node on its human gate.
func (s *Store) MarkNodeWaiting(ctx context.Context, workflowID, nodeID string) error {
	return s.UpdateNode(ctx, workflowID, nodeID, NodeUpdate{Status: core.WaitingHITL})
}

// UpdateNode applies a partial update to exactly one node row.
func (s *Store) UpdateNode(ctx context.Context, workflowID, nodeID string, upd NodeUpdate) error {
	q := `UPDATE workflow_nodes SET status = ?`
	args := []any{upd.Status}
	if upd.Result != nil {
		q += `, result = ?`
		args = append(args, *upd.Result)
	}
	if upd.Error != nil {
		q += `, error = ?`
		args = append(args, *upd.Error)
	}
	if upd.StartedAt != nil {
		q += `, started_at = ?`
		args = append(args, *upd.StartedAt)
	}
	if upd.CompletedAt != nil {
		q += `, completed_at = ?`
		args = append(args, *upd.CompletedAt)
	}
	q += ` WHERE workflow_id = ? AND node_id = ?`
	args = append(args, workflowID, nodeID)

	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to update node %s: %s", core.ErrStore, nodeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: node %s/%s", ErrNotFound, workflowID, nodeID)
	}
	return nil
}

// GetNode returns a single node row.
func (s *Store) GetNode(ctx context.Context, workflowID, nodeID string) (*WorkflowNode, error) {
	row := s.queryRow(ctx, `
		SELECT id, workflow_id, node_id, node_type, agent_id, config, status,
		       result, error, started_at, completed_at
		FROM workflow_nodes WHERE workflow_id = ? AND node_id = ?`,
		workflowID, nodeID)
	n, err := scanNode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: node %s/%s", ErrNotFound, workflowID, nodeID)
	}
	return n, err
}

// GetWorkflowNodes returns every node row of a workflow, ordered by
// insertion so the listing is stable.
func (s *Store) GetWorkflowNodes(ctx context.Context, workflowID string) ([]WorkflowNode, error) {
	rows, err := s.query(ctx, `
		SELECT id, workflow_id, node_id, node_type, agent_id, config, status,
		       result, error, started_at, completed_at
		FROM workflow_nodes WHERE workflow_id = ? ORDER BY id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list nodes: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []WorkflowNode
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNode(scan func(dest ...any) error) (*WorkflowNode, error) {
	var (
		n                      WorkflowNode
		agentID, config        sql.NullString
		result, errMsg         sql.NullString
		startedAt, completedAt sql.NullString
	)
	err := scan(&n.ID, &n.WorkflowID, &n.NodeID, &n.NodeType, &agentID, &config,
		&n.Status, &result, &errMsg, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to scan node: %s", core.ErrStore, err)
	}
	n.AgentID = nullStr(agentID)
	n.Config = nullStr(config)
	n.Result = nullStr(result)
	n.Error = nullStr(errMsg)
	n.StartedAt = nullStr(startedAt)
	n.CompletedAt = nullStr(completedAt)
	return &n, nil
}
