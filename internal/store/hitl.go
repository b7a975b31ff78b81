package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// CreateHITLRequest records a pending approval gate.
func (s *Store) CreateHITLRequest(ctx context.Context, req HITLRequest) error {
	_, err := s.exec(ctx, `
		INSERT INTO hitl_requests (request_id, workflow_id, node_id, message, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.RequestID, req.WorkflowID, req.NodeID, req.Message,
		string(core.HITLPending), nowUTC())
	if err != nil {
		return fmt.Errorf("%w: failed to create approval request: %s", core.ErrStore, err)
	}
	return nil
}

// GetHITLRequest returns the request with the given request id.
func (s *Store) GetHITLRequest(ctx context.Context, requestID string) (*HITLRequest, error) {
	row := s.queryRow(ctx, `
		SELECT id, request_id, workflow_id, node_id, message, status,
		       response, responded_by, created_at, responded_at
		FROM hitl_requests WHERE request_id = ?`, requestID)
	req, err := scanHITL(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: approval request %s", ErrNotFound, requestID)
	}
	return req, err
}

// ResolveHITLRequest records a decision on a pending request. The status
// guard makes resolution first-writer-wins: a request already decided is
// left untouched and the call reports false.
func (s *Store) ResolveHITLRequest(ctx context.Context, requestID string, status core.HITLStatus, respondedBy, response string) (bool, error) {
	res, err := s.exec(ctx, `
		UPDATE hitl_requests
		SET status = ?, responded_by = ?, response = ?, responded_at = ?
		WHERE request_id = ? AND status = ?`,
		string(status), respondedBy, response, nowUTC(),
		requestID, string(core.HITLPending))
	if err != nil {
		return false, fmt.Errorf("%w: failed to resolve approval request: %s", core.ErrStore, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// PendingHITLRequests lists undecided requests, oldest first. A non-empty
// workflowID restricts the listing to one workflow.
func (s *Store) PendingHITLRequests(ctx context.Context, workflowID string) ([]HITLRequest, error) {
	q := `
		SELECT id, request_id, workflow_id, node_id, message, status,
		       response, responded_by, created_at, responded_at
		FROM hitl_requests WHERE status = ?`
	args := []any{string(core.HITLPending)}
	if workflowID != "" {
		q += ` AND workflow_id = ?`
		args = append(args, workflowID)
	}
	q += ` ORDER BY id`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list approval requests: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []HITLRequest
	for rows.Next() {
		req, err := scanHITL(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanHITL(scan func(dest ...any) error) (*HITLRequest, error) {
	var (
		req                      HITLRequest
		message, response        sql.NullString
		respondedBy, respondedAt sql.NullString
	)
	err := scan(&req.ID, &req.RequestID, &req.WorkflowID, &req.NodeID, &message,
		&req.Status, &response, &respondedBy, &req.CreatedAt, &respondedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to scan approval request: %s", core.ErrStore, err)
	}
	req.Message = nullStr(message)
	req.Response = nullStr(response)
	req.RespondedBy = nullStr(respondedBy)
	req.RespondedAt = nullStr(respondedAt)
	return &req, nil
}
