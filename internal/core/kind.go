package core

// NodeKind is the dispatch category of a node.
type NodeKind string

const (
	KindAgent    NodeKind = "agent"
	KindTool     NodeKind = "tool"
	KindHITL     NodeKind = "human_in_loop"
	KindDecision NodeKind = "decision"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindAgent, KindTool, KindHITL, KindDecision:
		return true
	}
	return false
}
