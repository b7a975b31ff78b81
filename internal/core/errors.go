package core

import "errors"

// Contract-level error kinds. Callers match with errors.Is; detail is
// attached by wrapping with fmt.Errorf("%w: ...", err).
var (
	// ErrInvalidGraph marks a graph that cannot be executed: cyclic,
	// dangling dependency, missing node, or duplicate id.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrBinding marks an unknown or disabled tool/agent binding.
	ErrBinding = errors.New("binding error")

	// ErrSubstitution marks a placeholder that references a
	// non-completed node, an unknown node, or an incompatible coercion.
	ErrSubstitution = errors.New("substitution error")

	// ErrRemoteTool marks a remote tool transport failure, non-200
	// response, or timeout.
	ErrRemoteTool = errors.New("remote tool error")

	// ErrInvalidDescriptor marks a tool descriptor naming an
	// unregistered factory key.
	ErrInvalidDescriptor = errors.New("invalid descriptor")

	// ErrWorkflowNotActive is returned for HITL operations against a
	// workflow that already reached a terminal state.
	ErrWorkflowNotActive = errors.New("workflow not active")

	// ErrStore wraps transient persistence failures.
	ErrStore = errors.New("store error")
)
