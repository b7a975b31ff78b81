// Package tool implements the tool registry: local tools constructed
// from a compile-time factory table and remote tools proxied to MCP-style
// servers. Every execution returns a uniform envelope so callers never
// branch on transport details.
package tool

import (
	"context"
	"time"

	"github.com/orcabase/orca/internal/llm"
)

// Tool is a single executable capability.
type Tool interface {
	Name() string
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Envelope is the uniform result of every tool execution.
type Envelope struct {
	Success    bool   `json:"success"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	ToolName   string `json:"tool_name"`
	ExecutedAt string `json:"executed_at"`
}

func successEnvelope(name string, result any) Envelope {
	return Envelope{
		Success:    true,
		Result:     result,
		ToolName:   name,
		ExecutedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func errorEnvelope(name, errMsg string) Envelope {
	return Envelope{
		Success:    false,
		Error:      errMsg,
		ToolName:   name,
		ExecutedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Deps carries the shared collaborators available to local tool
// constructors.
type Deps struct {
	LLM          *llm.Facade
	TemplatesDir string
	DebugDir     string
}

// Factory constructs a local tool from its descriptor config.
type Factory func(name string, config map[string]any, deps Deps) (Tool, error)

var factories = make(map[string]Factory)

// Register adds a factory under a handler key. Called from tool package
// init functions; descriptor files reference tools by these keys.
func Register(key string, factory Factory) {
	factories[key] = factory
}

// Lookup returns the factory registered under the key.
func Lookup(key string) (Factory, bool) {
	f, ok := factories[key]
	return f, ok
}
