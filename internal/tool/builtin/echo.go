// Package builtin registers the local tools shipped with the engine.
// Descriptor files bind to them through their module keys.
package builtin

import (
	"context"

	"github.com/orcabase/orca/internal/tool"
)

func init() {
	tool.Register("echo", func(name string, _ map[string]any, _ tool.Deps) (tool.Tool, error) {
		return &echoTool{name: name}, nil
	})
}

// echoTool returns its arguments unchanged. Used for wiring tests and
// demo DAGs.
type echoTool struct {
	name string
}

func (t *echoTool) Name() string { return t.name }

func (t *echoTool) Execute(_ context.Context, args map[string]any) (any, error) {
	if msg, ok := args["message"]; ok {
		return map[string]any{"echo": msg}, nil
	}
	return map[string]any{"echo": args}, nil
}
