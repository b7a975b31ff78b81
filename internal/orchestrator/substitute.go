package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/graph"
)

// placeholderRe matches {node_id.result} and {node_id.result.key.subkey}
// references to upstream node results.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\.result((?:\.[A-Za-z0-9_\-]+)*)\}`)

// substituteInput walks the input value tree and replaces placeholder
// references with upstream results. A whole-string leaf is replaced by
// the referenced value with its type preserved; references embedded in a
// larger string must resolve to strings. References to unknown nodes,
// non-completed nodes or missing keys are left in place. Applied once
// per dispatch, with no recursive re-expansion.
func substituteInput(input any, g *graph.Graph) (any, error) {
	return walkValue(input, g)
}

func walkValue(v any, g *graph.Graph) (any, error) {
	switch val := v.(type) {
	case string:
		return substituteString(val, g)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			sub, err := walkValue(item, g)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			sub, err := walkValue(item, g)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, g *graph.Graph) (any, error) {
	// Whole-string reference: typed replacement.
	if m := placeholderRe.FindStringSubmatch(s); m != nil && m[0] == s {
		value, ok := resolveReference(g, m[1], m[2])
		if !ok {
			return s, nil
		}
		return value, nil
	}

	// Embedded references: string-valued only.
	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		m := placeholderRe.FindStringSubmatch(match)
		value, ok := resolveReference(g, m[1], m[2])
		if !ok {
			return match
		}
		str, isStr := value.(string)
		if !isStr {
			firstErr = fmt.Errorf("%w: placeholder %s resolves to %T, only strings may be embedded",
				core.ErrSubstitution, match, value)
			return match
		}
		return str
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// paramRe matches {params.name} references to workflow launch parameters.
var paramRe = regexp.MustCompile(`\{params\.([A-Za-z0-9_\-]+)\}`)

// applyParams interpolates launch parameters into every node config.
// Runs once at launch, before the graph snapshot is taken. Unknown
// parameter names are left in place.
func applyParams(g *graph.Graph, params map[string]any) {
	if len(params) == 0 {
		return
	}
	for _, n := range g.Nodes() {
		for k, v := range n.Config {
			n.Config[k] = walkParams(v, params)
		}
	}
}

func walkParams(v any, params map[string]any) any {
	switch val := v.(type) {
	case string:
		if m := paramRe.FindStringSubmatch(val); m != nil && m[0] == val {
			if p, ok := params[m[1]]; ok {
				return p
			}
			return val
		}
		return paramRe.ReplaceAllStringFunc(val, func(match string) string {
			name := paramRe.FindStringSubmatch(match)[1]
			p, ok := params[name]
			if !ok {
				return match
			}
			if s, isStr := p.(string); isStr {
				return s
			}
			return fmt.Sprintf("%v", p)
		})
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = walkParams(item, params)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = walkParams(item, params)
		}
		return out
	default:
		return v
	}
}

// resolveReference returns the referenced upstream value. The second
// return is false when the reference cannot be resolved and the
// placeholder must stay in place.
func resolveReference(g *graph.Graph, nodeID, dottedPath string) (any, bool) {
	node := g.Node(nodeID)
	if node == nil || node.Status != core.NodeCompleted || node.Result == nil {
		return nil, false
	}

	value := node.Result
	if dottedPath == "" {
		return value, true
	}
	for _, key := range strings.Split(strings.TrimPrefix(dottedPath, "."), ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if value == nil {
		return nil, false
	}
	return value, true
}
