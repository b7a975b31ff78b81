package builtin

import (
	"context"
	"fmt"

	"github.com/orcabase/orca/internal/llm"
	"github.com/orcabase/orca/internal/tool"
)

func init() {
	tool.Register("llm_summarization", newSummarizationTool)
	tool.Register("section_drafting", newSectionDraftingTool)
}

// llmToolConfig selects the provider and model a drafting tool routes
// its generations through. Empty values defer to the facade default.
type llmToolConfig struct {
	Provider string `mapstructure:"llm_provider"`
	Model    string `mapstructure:"llm_model"`
}

// summarizationTool condenses text through the LLM facade.
type summarizationTool struct {
	name   string
	facade *llm.Facade
	cfg    llmToolConfig
}

func newSummarizationTool(name string, config map[string]any, deps tool.Deps) (tool.Tool, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("llm_summarization tool requires the LLM facade")
	}
	var cfg llmToolConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return &summarizationTool{name: name, facade: deps.LLM, cfg: cfg}, nil
}

func (t *summarizationTool) Name() string { return t.name }

func (t *summarizationTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	content, _ := args["content"].(string)
	if content == "" {
		content, _ = args["text"].(string)
	}
	if content == "" {
		return nil, fmt.Errorf("no content to summarize")
	}

	prompt := "Summarize the following content concisely, preserving key facts:\n\n" + content
	if maxWords, ok := args["max_words"].(float64); ok && maxWords > 0 {
		prompt = fmt.Sprintf("Summarize the following content in at most %d words, preserving key facts:\n\n%s",
			int(maxWords), content)
	}

	summary := t.facade.Generate(ctx, prompt, llm.GenerateOptions{
		Provider: t.cfg.Provider,
		Model:    t.cfg.Model,
	})
	return map[string]any{"summary": summary}, nil
}

// sectionDraftingTool drafts one documentation section through the LLM
// facade. Used by generated documentation workflows.
type sectionDraftingTool struct {
	name   string
	facade *llm.Facade
	cfg    llmToolConfig
}

func newSectionDraftingTool(name string, config map[string]any, deps tool.Deps) (tool.Tool, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("section_drafting tool requires the LLM facade")
	}
	var cfg llmToolConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return &sectionDraftingTool{name: name, facade: deps.LLM, cfg: cfg}, nil
}

func (t *sectionDraftingTool) Name() string { return t.name }

func (t *sectionDraftingTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	title, _ := args["section_title"].(string)
	if title == "" {
		return nil, fmt.Errorf("no section_title specified")
	}
	description, _ := args["section_description"].(string)
	contextText, _ := args["context"].(string)

	prompt := fmt.Sprintf("Draft the %q section of a technical document.", title)
	if description != "" {
		prompt += "\nSection scope: " + description
	}
	if contextText != "" {
		prompt += "\n\nSource material:\n" + contextText
	}

	draft := t.facade.Generate(ctx, prompt, llm.GenerateOptions{
		Provider: t.cfg.Provider,
		Model:    t.cfg.Model,
	})
	return map[string]any{"section_title": title, "draft": draft}, nil
}
