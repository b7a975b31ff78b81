package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// AppendEvent appends one row to the workflow event stream. The
// autoincrement id totally orders events, so equal timestamps cannot
// scramble the audit trail.
func (s *Store) AppendEvent(ctx context.Context, workflowID string, event core.EventType, data map[string]any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertEvent(ctx, tx, s, workflowID, event, data, nowUTC())
	})
}

func insertEvent(ctx context.Context, tx *sql.Tx, s *Store, workflowID string, event core.EventType, data map[string]any, now string) error {
	payload := ""
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("%w: failed to encode event data: %s", core.ErrStore, err)
		}
		payload = string(b)
	}
	_, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO workflow_events (workflow_id, event_type, event_data, created_at)
		VALUES (?, ?, ?, ?)`),
		workflowID, string(event), payload, now)
	if err != nil {
		return fmt.Errorf("%w: failed to append event: %s", core.ErrStore, err)
	}
	return nil
}

// GetEvents returns the event stream of a workflow in emission order.
func (s *Store) GetEvents(ctx context.Context, workflowID string) ([]WorkflowEvent, error) {
	rows, err := s.query(ctx, `
		SELECT id, workflow_id, event_type, event_data, created_at
		FROM workflow_events WHERE workflow_id = ? ORDER BY id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list events: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []WorkflowEvent
	for rows.Next() {
		var (
			ev   WorkflowEvent
			data sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.WorkflowID, &ev.EventType, &data, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan event: %s", core.ErrStore, err)
		}
		ev.EventData = nullStr(data)
		out = append(out, ev)
	}
	return out, rows.Err()
}
