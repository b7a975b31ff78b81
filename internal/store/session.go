package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// CreateUser inserts a user row.
func (s *Store) CreateUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = "user"
	}
	_, err := s.exec(ctx, `
		INSERT INTO users (user_id, username, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.UserID, u.Username, u.Email, u.Role, nowUTC())
	if err != nil {
		return fmt.Errorf("%w: failed to create user: %s", core.ErrStore, err)
	}
	return nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	var (
		u     User
		email sql.NullString
	)
	err := s.queryRow(ctx, `
		SELECT user_id, username, email, role, created_at
		FROM users WHERE user_id = ?`, userID).
		Scan(&u.UserID, &u.Username, &email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read user: %s", core.ErrStore, err)
	}
	u.Email = nullStr(email)
	return &u, nil
}

// CreateSession inserts a session row stamped active now.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	now := nowUTC()
	_, err := s.exec(ctx, `
		INSERT INTO sessions (session_id, user_id, created_at, last_active_at, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		sess.SessionID, sess.UserID, now, now, sess.Metadata)
	if err != nil {
		return fmt.Errorf("%w: failed to create session: %s", core.ErrStore, err)
	}
	return nil
}

// TouchSession refreshes a session's activity timestamp.
func (s *Store) TouchSession(ctx context.Context, sessionID string) error {
	_, err := s.exec(ctx,
		`UPDATE sessions SET last_active_at = ? WHERE session_id = ?`,
		nowUTC(), sessionID)
	if err != nil {
		return fmt.Errorf("%w: failed to touch session: %s", core.ErrStore, err)
	}
	return nil
}

// SavePlan inserts or replaces a plan row.
func (s *Store) SavePlan(ctx context.Context, p Plan) error {
	if p.Status == "" {
		p.Status = "draft"
	}
	now := nowUTC()
	_, err := s.exec(ctx, `
		INSERT INTO plans (plan_id, session_id, title, plan_json, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (plan_id) DO UPDATE SET
			title = excluded.title, plan_json = excluded.plan_json,
			status = excluded.status, updated_at = excluded.updated_at`,
		p.PlanID, p.SessionID, p.Title, p.PlanJSON, p.Status, now, now)
	if err != nil {
		return fmt.Errorf("%w: failed to save plan: %s", core.ErrStore, err)
	}
	return nil
}

// AppendPlannerMessage appends one message to a planning conversation.
func (s *Store) AppendPlannerMessage(ctx context.Context, msg PlannerMessage) error {
	_, err := s.exec(ctx, `
		INSERT INTO planner_conversations (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Content, nowUTC())
	if err != nil {
		return fmt.Errorf("%w: failed to append planner message: %s", core.ErrStore, err)
	}
	return nil
}

// PlannerConversation returns a session's planning messages in order.
func (s *Store) PlannerConversation(ctx context.Context, sessionID string) ([]PlannerMessage, error) {
	rows, err := s.query(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM planner_conversations WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list planner messages: %s", core.ErrStore, err)
	}
	defer rows.Close()

	var out []PlannerMessage
	for rows.Next() {
		var m PlannerMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan planner message: %s", core.ErrStore, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
