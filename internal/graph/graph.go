// Package graph implements the immutable-shape DAG executed by the
// orchestrator. A Graph is built once (from a DAG definition or a JSON
// snapshot), validated for acyclicity, and then driven through node
// status transitions by a single workflow driver.
package graph

import (
	"fmt"

	"github.com/orcabase/orca/internal/core"
)

// Node is a single unit of work in a graph.
type Node struct {
	ID           string
	Kind         core.NodeKind
	AgentID      string
	Config       map[string]any
	Status       core.NodeStatus
	Result       any
	Error        string
	Dependencies map[string]struct{}
	Dependents   map[string]struct{}
}

// NewNode creates a pending node of the given kind.
func NewNode(id string, kind core.NodeKind, agentID string, config map[string]any) *Node {
	if config == nil {
		config = map[string]any{}
	}
	return &Node{
		ID:           id,
		Kind:         kind,
		AgentID:      agentID,
		Config:       config,
		Status:       core.NodePending,
		Dependencies: map[string]struct{}{},
		Dependents:   map[string]struct{}{},
	}
}

// Ready reports whether every dependency of the node is in the completed set.
func (n *Node) Ready(completed map[string]struct{}) bool {
	for dep := range n.Dependencies {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// Edge is a dependency from one node to another. Guard expressions are
// reserved for decision routing and are not evaluated.
type Edge struct {
	From  string
	To    string
	Guard string
}

// Graph is a directed acyclic graph of nodes.
type Graph struct {
	ID          string
	Name        string
	Description string

	nodes      map[string]*Node
	edges      []Edge
	StartNodes []string
}

// New creates an empty graph.
func New(id, name, description string) *Graph {
	return &Graph{
		ID:          id,
		Name:        name,
		Description: description,
		nodes:       map[string]*Node{},
	}
}

// AddNode adds a node. Duplicate ids are rejected.
func (g *Graph) AddNode(node *Node) error {
	if _, ok := g.nodes[node.ID]; ok {
		return fmt.Errorf("%w: duplicate node id %q", core.ErrInvalidGraph, node.ID)
	}
	g.nodes[node.ID] = node
	return nil
}

// AddEdge adds a dependency edge and updates both endpoint sets.
func (g *Graph) AddEdge(edge Edge) error {
	from, ok := g.nodes[edge.From]
	if !ok {
		return fmt.Errorf("%w: edge references unknown node %q", core.ErrInvalidGraph, edge.From)
	}
	to, ok := g.nodes[edge.To]
	if !ok {
		return fmt.Errorf("%w: edge references unknown node %q", core.ErrInvalidGraph, edge.To)
	}
	g.edges = append(g.edges, edge)
	to.Dependencies[edge.From] = struct{}{}
	from.Dependents[edge.To] = struct{}{}
	return nil
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Nodes returns the node map. Callers must not add or remove entries.
func (g *Graph) Nodes() map[string]*Node {
	return g.nodes
}

// Edges returns the edge list.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// GetStartNodes returns the explicit start set when non-empty, otherwise
// every node with no dependencies.
func (g *Graph) GetStartNodes() []*Node {
	if len(g.StartNodes) > 0 {
		var out []*Node
		for _, id := range g.StartNodes {
			if n, ok := g.nodes[id]; ok {
				out = append(out, n)
			}
		}
		return out
	}
	var out []*Node
	for _, n := range g.nodes {
		if len(n.Dependencies) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// GetReadyNodes returns every pending node whose dependency set is a
// subset of the completed set. The explicit start set is a hint, not a
// restriction: dependency-free nodes outside it are still eligible.
func (g *Graph) GetReadyNodes(completed map[string]struct{}) []*Node {
	var ready []*Node
	for _, id := range g.order() {
		n := g.nodes[id]
		if n.Status == core.NodePending && n.Ready(completed) {
			ready = append(ready, n)
		}
	}
	return ready
}

// CompletedSet returns the ids of nodes whose status satisfies dependents.
func (g *Graph) CompletedSet() map[string]struct{} {
	completed := make(map[string]struct{})
	for id, n := range g.nodes {
		if n.Status.Satisfied() {
			completed[id] = struct{}{}
		}
	}
	return completed
}

// HasCycle checks for a cycle using DFS with a recursion stack.
func (g *Graph) HasCycle() bool {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for dep := range g.nodes[id].Dependents {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for id := range g.nodes {
		if !visited[id] {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// TopologicalSort returns node ids in dependency order using Kahn's
// algorithm. A cyclic graph yields an empty slice.
func (g *Graph) TopologicalSort() []string {
	inDegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.Dependencies)
	}

	var queue []string
	for _, id := range g.order() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, dep := range sortedIDs(g.nodes[id].Dependents) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil
	}
	return sorted
}

// Validate checks the structural invariants required before execution.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("%w: edge references unknown node %q", core.ErrInvalidGraph, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("%w: edge references unknown node %q", core.ErrInvalidGraph, e.To)
		}
	}
	for _, id := range g.StartNodes {
		n, ok := g.nodes[id]
		if !ok {
			return fmt.Errorf("%w: start node %q does not exist", core.ErrInvalidGraph, id)
		}
		if len(n.Dependencies) > 0 {
			return fmt.Errorf("%w: start node %q has dependencies", core.ErrInvalidGraph, id)
		}
	}
	if g.HasCycle() {
		return fmt.Errorf("%w: cycle detected", core.ErrInvalidGraph)
	}
	return nil
}
