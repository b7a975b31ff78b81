package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/orcabase/orca/internal/core"
)

// order returns node ids in lexical order. All iteration that can affect
// observable output goes through this so serialization and scheduling
// decisions are deterministic.
func (g *Graph) order() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type nodeJSON struct {
	NodeID       string         `json:"node_id"`
	NodeType     core.NodeKind  `json:"node_type"`
	AgentID      string         `json:"agent_id,omitempty"`
	Config       map[string]any `json:"config"`
	Status       string         `json:"status"`
	Result       any            `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
	Dependencies []string       `json:"dependencies"`
	Dependents   []string       `json:"dependents"`
}

type edgeJSON struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	Guard    string `json:"guard,omitempty"`
}

type graphJSON struct {
	GraphID     string              `json:"graph_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Nodes       map[string]nodeJSON `json:"nodes"`
	Edges       []edgeJSON          `json:"edges"`
	StartNodes  []string            `json:"start_nodes"`
}

// MarshalJSON serializes the graph into its canonical form. Maps are
// emitted with sorted keys by encoding/json, so serialize → deserialize →
// serialize is byte-identical.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		GraphID:     g.ID,
		Name:        g.Name,
		Description: g.Description,
		Nodes:       make(map[string]nodeJSON, len(g.nodes)),
		Edges:       make([]edgeJSON, 0, len(g.edges)),
		StartNodes:  g.StartNodes,
	}
	if out.StartNodes == nil {
		out.StartNodes = []string{}
	}
	for id, n := range g.nodes {
		out.Nodes[id] = nodeJSON{
			NodeID:       n.ID,
			NodeType:     n.Kind,
			AgentID:      n.AgentID,
			Config:       n.Config,
			Status:       string(n.Status),
			Result:       n.Result,
			Error:        n.Error,
			Dependencies: sortedIDs(n.Dependencies),
			Dependents:   sortedIDs(n.Dependents),
		}
	}
	for _, e := range g.edges {
		out.Edges = append(out.Edges, edgeJSON{FromNode: e.From, ToNode: e.To, Guard: e.Guard})
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a graph from its canonical form, including node
// statuses and results captured in a snapshot.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %s", core.ErrInvalidGraph, err)
	}
	g.ID = in.GraphID
	g.Name = in.Name
	g.Description = in.Description
	g.StartNodes = in.StartNodes
	g.nodes = make(map[string]*Node, len(in.Nodes))
	g.edges = nil

	for id, nj := range in.Nodes {
		node := NewNode(id, nj.NodeType, nj.AgentID, nj.Config)
		node.Status = core.NodeStatus(nj.Status)
		if node.Status == "" {
			node.Status = core.NodePending
		}
		node.Result = nj.Result
		node.Error = nj.Error
		for _, dep := range nj.Dependencies {
			node.Dependencies[dep] = struct{}{}
		}
		for _, dep := range nj.Dependents {
			node.Dependents[dep] = struct{}{}
		}
		g.nodes[id] = node
	}
	for _, ej := range in.Edges {
		g.edges = append(g.edges, Edge{From: ej.FromNode, To: ej.ToNode, Guard: ej.Guard})
	}
	return nil
}

// FromJSON parses a canonical graph snapshot.
func FromJSON(data []byte) (*Graph, error) {
	g := &Graph{}
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}
