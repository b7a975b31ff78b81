// Package agent implements the agent registry. Agents are LLM-backed
// handlers described by descriptor files and dispatched by id.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/llm"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
	"github.com/orcabase/orca/internal/store"
)

// Descriptor is the on-disk form of an agent.
type Descriptor struct {
	AgentID       string   `json:"agent_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	SystemPrompt  string   `json:"system_prompt,omitempty"`
	LLMProvider   string   `json:"llm_provider,omitempty"`
	LLMModel      string   `json:"llm_model,omitempty"`
	Enabled       bool     `json:"enabled"`
	ApprovedRoles []string `json:"approved_roles,omitempty"`
}

// Result is the envelope returned by every agent execution.
type Result struct {
	Success  bool           `json:"success"`
	Response string         `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
	LLMUsed  map[string]any `json:"llm_used,omitempty"`
}

// ExecutionMeta binds an execution to its workflow node for auditing.
type ExecutionMeta struct {
	WorkflowID string
	NodeID     string
}

// Registry loads agent descriptors and dispatches executions through the
// LLM facade. The optional store records an audit row per execution.
type Registry struct {
	dir    string
	facade *llm.Facade
	store  *store.Store

	mu     sync.RWMutex
	agents map[string]Descriptor
}

// NewRegistry creates a registry bound to the facade. The store may be
// nil to skip execution auditing.
func NewRegistry(dir string, facade *llm.Facade, st *store.Store) *Registry {
	return &Registry{
		dir:    dir,
		facade: facade,
		store:  st,
		agents: map[string]Descriptor{},
	}
}

// Load reads every descriptor file, replacing the agent map atomically.
// Bad files are skipped and reported.
func (r *Registry) Load(ctx context.Context) []error {
	agents := map[string]Descriptor{}
	var errs []error

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to read agents directory: %w", err))
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err))
			continue
		}
		var d Descriptor
		if err := json.Unmarshal(data, &d); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err))
			continue
		}
		if d.AgentID == "" {
			errs = append(errs, fmt.Errorf("%w: %s: agent_id is required", core.ErrInvalidDescriptor, path))
			continue
		}
		if _, dup := agents[d.AgentID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s: duplicate agent id %q", core.ErrInvalidDescriptor, path, d.AgentID))
			continue
		}
		agents[d.AgentID] = d
	}

	r.mu.Lock()
	r.agents = agents
	r.mu.Unlock()

	logger.Info(ctx, "Agent registry loaded", "agents", len(agents), "errors", len(errs))
	return errs
}

// Get returns the descriptor for an agent id.
func (r *Registry) Get(agentID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.agents[agentID]
	return d, ok
}

// List returns every descriptor sorted by agent id.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.agents))
	for _, d := range r.agents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// Authorized reports whether a caller role may invoke the agent. An
// empty approved_roles list admits everyone.
func (r *Registry) Authorized(agentID, role string) bool {
	d, ok := r.Get(agentID)
	if !ok {
		return false
	}
	if len(d.ApprovedRoles) == 0 {
		return true
	}
	for _, allowed := range d.ApprovedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// ExecuteAgent dispatches input to the agent's handler. The result is an
// envelope; dispatch failures are reported inside it, not as errors.
func (r *Registry) ExecuteAgent(ctx context.Context, agentID string, input map[string]any, meta ExecutionMeta) Result {
	d, ok := r.Get(agentID)
	if !ok {
		return Result{Success: false, Error: "Agent not found: " + agentID}
	}
	if !d.Enabled {
		return Result{Success: false, Error: "Agent is disabled: " + agentID}
	}

	prompt := promptFromInput(input)
	llmUsed := map[string]any{"provider": d.LLMProvider, "model": d.LLMModel}

	execID := uuid.NewString()
	r.recordStart(ctx, execID, agentID, input, meta)

	response := r.facade.Generate(ctx, prompt, llm.GenerateOptions{
		Provider: d.LLMProvider,
		Model:    d.LLMModel,
		System:   d.SystemPrompt,
	})

	r.recordFinish(ctx, execID, response)
	logger.Debug(ctx, "Agent executed", tag.Agent(agentID))
	return Result{Success: true, Response: response, LLMUsed: llmUsed}
}

func (r *Registry) recordStart(ctx context.Context, execID, agentID string, input map[string]any, meta ExecutionMeta) {
	if r.store == nil {
		return
	}
	inputJSON, err := store.MarshalResult(input)
	if err != nil {
		inputJSON = ""
	}
	err = r.store.CreateAgentExecution(ctx, store.AgentExecution{
		ExecutionID: execID,
		AgentID:     agentID,
		WorkflowID:  meta.WorkflowID,
		NodeID:      meta.NodeID,
		Input:       inputJSON,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to record agent execution", tag.Agent(agentID), tag.Error(err))
	}
}

func (r *Registry) recordFinish(ctx context.Context, execID, output string) {
	if r.store == nil {
		return
	}
	if err := r.store.FinishAgentExecution(ctx, execID, store.ExecCompleted, output, ""); err != nil {
		logger.Warn(ctx, "Failed to finish agent execution record", tag.Error(err))
	}
}

// promptFromInput derives the prompt text from a free-form input map.
// String message fields win; anything else goes in as JSON.
func promptFromInput(input map[string]any) string {
	for _, key := range []string{"prompt", "message", "input", "query"} {
		if s, ok := input[key].(string); ok && s != "" {
			return s
		}
	}
	if len(input) == 0 {
		return ""
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}
