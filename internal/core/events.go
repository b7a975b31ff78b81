package core

// EventType identifies an entry in the append-only workflow event log.
// The event log is the causal source of truth for a workflow run.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow_started"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowFailed    EventType = "workflow_failed"
	EventNodeStarted       EventType = "node_started"
	EventNodeCompleted     EventType = "node_completed"
	EventNodeFailed        EventType = "node_failed"
	EventHITLRequested     EventType = "hitl_requested"
	EventHITLApproved      EventType = "hitl_approved"
	EventHITLRejected      EventType = "hitl_rejected"
)
