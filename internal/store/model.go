package store

import "github.com/orcabase/orca/internal/core"

// Workflow is a row in the workflows table. Timestamps are ISO-8601 UTC
// strings; empty means not set.
type Workflow struct {
	WorkflowID  string
	DagID       string
	SessionID   string
	Name        string
	Description string
	Status      core.WorkflowStatus
	GraphJSON   string
	Result      string
	Error       string
	CreatedBy   string
	CreatedAt   string
	StartedAt   string
	CompletedAt string
}

// WorkflowNode is a row in the workflow_nodes table. Status is stored as
// a string because the waiting sub-state for human gates is a persistence
// detail the in-memory graph never sees.
type WorkflowNode struct {
	ID          int64
	WorkflowID  string
	NodeID      string
	NodeType    core.NodeKind
	AgentID     string
	Config      string
	Status      string
	Result      string
	Error       string
	StartedAt   string
	CompletedAt string
}

// WorkflowEvent is a row in the append-only workflow_events table. The
// autoincrement id is the total order of the event stream.
type WorkflowEvent struct {
	ID         int64
	WorkflowID string
	EventType  core.EventType
	EventData  string
	CreatedAt  string
}

// HITLRequest is a row in the hitl_requests table.
type HITLRequest struct {
	ID          int64
	RequestID   string
	WorkflowID  string
	NodeID      string
	Message     string
	Status      core.HITLStatus
	Response    string
	RespondedBy string
	CreatedAt   string
	RespondedAt string
}

// AgentExecution is a row in the agent_executions audit table.
type AgentExecution struct {
	ID          int64
	ExecutionID string
	AgentID     string
	WorkflowID  string
	NodeID      string
	Input       string
	Output      string
	Status      string
	Error       string
	StartedAt   string
	CompletedAt string
}

// User is a row in the users table.
type User struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	CreatedAt string
}

// Session is a row in the sessions table.
type Session struct {
	SessionID    string
	UserID       string
	CreatedAt    string
	LastActiveAt string
	Metadata     string
}

// Plan is a row in the plans table. Plans are written by the planning
// surface; the engine only reads them for monitoring.
type Plan struct {
	PlanID    string
	SessionID string
	Title     string
	PlanJSON  string
	Status    string
	CreatedAt string
	UpdatedAt string
}

// PlannerMessage is a row in the planner_conversations table.
type PlannerMessage struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt string
}
