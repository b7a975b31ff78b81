package store

import (
	"context"
	"fmt"
	"time"

	"github.com/orcabase/orca/internal/core"
)

// WorkflowCounts aggregates workflow rows by status.
type WorkflowCounts struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}

// DAGStats aggregates outcomes for a single DAG definition.
type DAGStats struct {
	DagID     string
	Total     int
	Completed int
	Failed    int
}

// CountWorkflows returns workflow counts by status since the given time.
// A zero time counts everything.
func (s *Store) CountWorkflows(ctx context.Context, since time.Time) (*WorkflowCounts, error) {
	q := `SELECT status, COUNT(*) FROM workflows`
	args := []any{}
	if !since.IsZero() {
		q += ` WHERE created_at >= ?`
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	q += ` GROUP BY status`

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count workflows: %s", core.ErrStore, err)
	}
	defer rows.Close()

	counts := &WorkflowCounts{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: failed to scan workflow counts: %s", core.ErrStore, err)
		}
		counts.Total += n
		switch core.WorkflowStatus(status) {
		case core.WorkflowPending:
			counts.Pending = n
		case core.WorkflowRunning:
			counts.Running = n
		case core.WorkflowCompleted:
			counts.Completed = n
		case core.WorkflowFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// CountPendingHITL returns the number of undecided approval gates.
func (s *Store) CountPendingHITL(ctx context.Context) (int, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM hitl_requests WHERE status = ?`,
		string(core.HITLPending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count approval requests: %s", core.ErrStore, err)
	}
	return n, nil
}

// CountActiveUsers returns distinct users with a session active since the
// given time.
func (s *Store) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM sessions WHERE last_active_at >= ?`,
		since.UTC().Format(time.RFC3339Nano)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count active users: %s", core.ErrStore, err)
	}
	return n, nil
}

// StatsByDAG aggregates workflow outcomes per DAG definition.
func (s *Store) StatsByDAG(ctx context.Context) ([]DAGStats, error) {
	rows, err := s.query(ctx, `
		SELECT dag_id,
		       COUNT(*),
		       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = ? THEN 1 ELSE 0 END)
		FROM workflows GROUP BY dag_id ORDER BY dag_id`,
		string(core.WorkflowCompleted), string(core.WorkflowFailed))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to aggregate workflow stats: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []DAGStats
	for rows.Next() {
		var st DAGStats
		if err := rows.Scan(&st.DagID, &st.Total, &st.Completed, &st.Failed); err != nil {
			return nil, fmt.Errorf("%w: failed to scan workflow stats: %s", core.ErrStore, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
