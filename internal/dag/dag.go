// Package dag implements the DAG registry: declarative graph definition
// files loaded from a directory, validated, and materialized into fresh
// Graph instances for execution.
package dag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/graph"
)

// Parameter documents one workflow input parameter.
type Parameter struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Example     any    `json:"example,omitempty" yaml:"example,omitempty"`
}

// NodeDef is one node in a definition file.
type NodeDef struct {
	NodeID       string         `json:"node_id" yaml:"node_id"`
	NodeType     string         `json:"node_type" yaml:"node_type"`
	AgentID      string         `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Config       map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Definition is a declarative graph definition.
type Definition struct {
	DagID       string               `json:"dag_id" yaml:"dag_id"`
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	StartNodes  []string             `json:"start_nodes,omitempty" yaml:"start_nodes,omitempty"`
	Nodes       []NodeDef            `json:"nodes" yaml:"nodes"`
}

// Parse decodes a definition from JSON or YAML and validates it.
func Parse(data []byte, path string) (*Definition, error) {
	var def Definition
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, &def)
	} else {
		err = json.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidGraph, path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &def, nil
}

// Validate checks the structural invariants of a definition.
func (d *Definition) Validate() error {
	if d.DagID == "" {
		return fmt.Errorf("%w: dag_id is required", core.ErrInvalidGraph)
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("%w: at least one node is required", core.ErrInvalidGraph)
	}

	seen := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.NodeID == "" {
			return fmt.Errorf("%w: node without id", core.ErrInvalidGraph)
		}
		if _, dup := seen[n.NodeID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", core.ErrInvalidGraph, n.NodeID)
		}
		seen[n.NodeID] = struct{}{}
		if !core.NodeKind(n.NodeType).Valid() {
			return fmt.Errorf("%w: node %q has unknown type %q", core.ErrInvalidGraph, n.NodeID, n.NodeType)
		}
	}
	for _, n := range d.Nodes {
		for _, dep := range n.Dependencies {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("%w: node %q depends on unknown node %q", core.ErrInvalidGraph, n.NodeID, dep)
			}
		}
	}

	g, err := d.Materialize()
	if err != nil {
		return err
	}
	return g.Validate()
}

// Materialize builds a fresh Graph from the definition. Each call
// returns an independent instance safe to mutate during execution.
func (d *Definition) Materialize() (*graph.Graph, error) {
	g := graph.New(d.DagID, d.Name, d.Description)
	g.StartNodes = append([]string(nil), d.StartNodes...)

	for _, n := range d.Nodes {
		config := make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			config[k] = v
		}
		if err := g.AddNode(graph.NewNode(n.NodeID, core.NodeKind(n.NodeType), n.AgentID, config)); err != nil {
			return nil, err
		}
	}
	for _, n := range d.Nodes {
		for _, dep := range n.Dependencies {
			if err := g.AddEdge(graph.Edge{From: dep, To: n.NodeID}); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// ValidateParams checks required parameters, applies defaults, and
// validates each effective value against its declared type, returning
// the effective parameter map.
func (d *Definition) ValidateParams(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for name, p := range d.Parameters {
		v, ok := out[name]
		if !ok {
			if p.Default != nil {
				v = p.Default
				out[name] = v
				ok = true
			} else if p.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q", core.ErrInvalidGraph, name)
			}
		}
		if !ok || p.Type == "" {
			continue
		}
		if err := validateParamType(name, p.Type, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// validateParamType checks one parameter value against its declared
// JSON schema type.
func validateParamType(name, typ string, value any) error {
	resolved, err := (&jsonschema.Schema{Type: typ}).Resolve(nil)
	if err != nil {
		return fmt.Errorf("%w: parameter %q declares invalid type %q: %s",
			core.ErrInvalidGraph, name, typ, err)
	}
	if err := resolved.Validate(value); err != nil {
		return fmt.Errorf("%w: parameter %q: %s", core.ErrInvalidGraph, name, err)
	}
	return nil
}
