package core

// NodeStatus represents the lifecycle phase of a single node within a
// workflow. The string values are the canonical tokens persisted to the
// store and serialized into graph snapshots.
type NodeStatus string

const (
	NodePending   NodeStatus = "pending"
	NodeReady     NodeStatus = "ready"
	NodeRunning   NodeStatus = "running"
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
	NodeSkipped   NodeStatus = "skipped"
)

// IsTerminal reports whether the node can make no further transitions.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeCompleted || s == NodeFailed || s == NodeSkipped
}

// Satisfied reports whether the node counts toward dependents' readiness.
func (s NodeStatus) Satisfied() bool {
	return s == NodeCompleted || s == NodeSkipped
}

// WorkflowStatus represents the lifecycle phase of a workflow execution.
type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
)

// IsTerminal reports whether the workflow reached its final state.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed
}

// HITLStatus represents the state of a human-in-the-loop request.
type HITLStatus string

const (
	HITLPending  HITLStatus = "pending"
	HITLApproved HITLStatus = "approved"
	HITLRejected HITLStatus = "rejected"
)

// WaitingHITL is the synthetic sub-status recorded on a node row while the
// workflow is parked on a human gate. The in-memory node stays running.
const WaitingHITL = "waiting_hitl"
