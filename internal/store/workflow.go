package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CreateWorkflow inserts the workflow row and all of its node rows in a
// single transaction, so a failed launch leaves no partial state behind.
func (s *Store) CreateWorkflow(ctx context.Context, wf Workflow, nodes []WorkflowNode) error {
	now := nowUTC()
	if wf.CreatedAt == "" {
		wf.CreatedAt = now
	}
	if wf.StartedAt == "" {
		wf.StartedAt = now
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO workflows
				(workflow_id, dag_id, session_id, name, description, status,
				 graph_json, created_by, created_at, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			wf.WorkflowID, wf.DagID, wf.SessionID, wf.Name, wf.Description,
			string(wf.Status), wf.GraphJSON, wf.CreatedBy, wf.CreatedAt, wf.StartedAt)
		if err != nil {
			return fmt.Errorf("%w: failed to insert workflow: %s", core.ErrStore, err)
		}
		for _, n := range nodes {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO workflow_nodes
					(workflow_id, node_id, node_type, agent_id, config, status)
				VALUES (?, ?, ?, ?, ?, ?)`),
				wf.WorkflowID, n.NodeID, string(n.NodeType), n.AgentID, n.Config,
				string(core.NodePending))
			if err != nil {
				return fmt.Errorf("%w: failed to insert node %s: %s", core.ErrStore, n.NodeID, err)
			}
		}
		return nil
	})
}

// GetWorkflow returns the workflow row for the given id.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	row := s.queryRow(ctx, `
		SELECT workflow_id, dag_id, session_id, name, description, status,
		       graph_json, result, error, created_by, created_at, started_at, completed_at
		FROM workflows WHERE workflow_id = ?`, workflowID)
	return scanWorkflow(row)
}

func scanWorkflow(row *sql.Row) (*Workflow, error) {
	var (
		wf                        Workflow
		sessionID, description    sql.NullString
		result, errMsg, createdBy sql.NullString
		startedAt, completedAt    sql.NullString
	)
	err := row.Scan(&wf.WorkflowID, &wf.DagID, &sessionID, &wf.Name, &description,
		&wf.Status, &wf.GraphJSON, &result, &errMsg, &createdBy,
		&wf.CreatedAt, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: workflow", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read workflow: %s", core.ErrStore, err)
	}
	wf.SessionID = nullStr(sessionID)
	wf.Description = nullStr(description)
	wf.Result = nullStr(result)
	wf.Error = nullStr(errMsg)
	wf.CreatedBy = nullStr(createdBy)
	wf.StartedAt = nullStr(startedAt)
	wf.CompletedAt = nullStr(completedAt)
	return &wf, nil
}

// ListWorkflows returns workflows filtered by status, newest first. An
// empty status lists everything.
func (s *Store) ListWorkflows(ctx context.Context, status core.WorkflowStatus, limit int) ([]Workflow, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
		SELECT workflow_id, dag_id, status, name, created_at, started_at, completed_at
		FROM workflows`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, workflow_id LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list workflows: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		var (
			wf                     Workflow
			startedAt, completedAt sql.NullString
		)
		if err := rows.Scan(&wf.WorkflowID, &wf.DagID, &wf.Status, &wf.Name,
			&wf.CreatedAt, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan workflow: %s", core.ErrStore, err)
		}
		wf.StartedAt = nullStr(startedAt)
		wf.CompletedAt = nullStr(completedAt)
		out = append(out, wf)
	}
	return out, rows.Err()
}

// UpdateWorkflowStatus moves a non-terminal workflow to the given status.
// Terminal workflows are left untouched and the call reports false.
func (s *Store) UpdateWorkflowStatus(ctx context.Context, workflowID string, status core.WorkflowStatus) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE workflows SET status = ?
		WHERE workflow_id = ? AND status NOT IN (?, ?)`,
		string(status), workflowID,
		string(core.WorkflowCompleted), string(core.WorkflowFailed))
	if err != nil {
		return false, fmt.Errorf("%w: failed to update workflow status: %s", core.ErrStore, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FinishWorkflow moves a workflow to a terminal status and appends the
// matching lifecycle event in one transaction. The guard on the current
// status makes termination one-shot: a workflow that already finished is
// not rewritten, and the call reports false.
func (s *Store) FinishWorkflow(ctx context.Context, workflowID string, status core.WorkflowStatus, result, errMsg string) (bool, error) {
	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: %s is not a terminal status", core.ErrStore, status)
	}
	now := nowUTC()
	finished := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE workflows SET status = ?, result = ?, error = ?, completed_at = ?
			WHERE workflow_id = ? AND status NOT IN (?, ?)`),
			string(status), result, errMsg, now, workflowID,
			string(core.WorkflowCompleted), string(core.WorkflowFailed))
		if err != nil {
			return fmt.Errorf("%w: failed to finish workflow: %s", core.ErrStore, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil
		}
		finished = true

		event := core.EventWorkflowCompleted
		data := map[string]any{}
		if status == core.WorkflowFailed {
			event = core.EventWorkflowFailed
			data["error"] = errMsg
		}
		return insertEvent(ctx, tx, s, workflowID, event, data, now)
	})
	return finished, err
}

// SaveGraphSnapshot overwrites the workflow's serialized graph.
func (s *Store) SaveGraphSnapshot(ctx context.Context, workflowID string, graphJSON string) error {
	_, err := s.exec(ctx, `UPDATE workflows SET graph_json = ? WHERE workflow_id = ?`,
		graphJSON, workflowID)
	if err != nil {
		return fmt.Errorf("%w: failed to save graph snapshot: %s", core.ErrStore, err)
	}
	return nil
}

// RecoverOrphans fails every workflow left in running state by a previous
// process and returns the affected ids. Called once at startup, before
// any new workflow is accepted.
func (s *Store) RecoverOrphans(ctx context.Context, reason string) ([]string, error) {
	rows, err := s.query(ctx,
		`SELECT workflow_id FROM workflows WHERE status = ?`,
		string(core.WorkflowRunning))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find orphaned workflows: %s", core.ErrStore, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: failed to scan workflow id: %s", core.ErrStore, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate orphaned workflows: %s", core.ErrStore, err)
	}

	for _, id := range ids {
		if _, err := s.FinishWorkflow(ctx, id, core.WorkflowFailed, "", reason); err != nil {
			return ids, err
		}
	}
	return ids, nil
}

// MarshalResult encodes a node or workflow result for storage. A nil
// result stores as an empty string, not the literal "null".
func MarshalResult(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode result: %s", core.ErrStore, err)
	}
	return string(data), nil
}
