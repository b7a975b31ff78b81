package llm

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
)

// GenerateOptions selects the provider binding and sampling parameters
// for one generation. Empty provider or model falls back to the
// configured default.
type GenerateOptions struct {
	Provider    string
	Model       string
	System      string
	Temperature *float64
	MaxTokens   *int
}

// Facade is the provider-agnostic generation entry point. Generate never
// returns an error: real provider failures retry inside the adapter and
// then fall back to the mock provider.
type Facade struct {
	manager *ConfigManager
	baseCfg Config
}

// NewFacade creates a facade over the given configuration manager.
// Options adjust the retry and timeout behavior of provider clients.
func NewFacade(manager *ConfigManager, opts ...Option) *Facade {
	return &Facade{manager: manager, baseCfg: NewConfig(opts...)}
}

// resolved is the immutable per-call binding taken from the config
// snapshot before any I/O.
type resolved struct {
	provider ProviderType
	modelID  string
	cfg      Config
}

// resolve picks the provider and model for a call. A disabled or unknown
// binding silently degrades to the default, and an unusable default
// degrades to mock.
func (f *Facade) resolve(providerName, modelName string) resolved {
	cfg := f.manager.Snapshot()
	if providerName == "" {
		providerName = cfg.DefaultProvider
	}
	if modelName == "" {
		modelName = cfg.DefaultModel
	}

	pc, ok := cfg.Providers[providerName]
	mc, mok := pc.Models[modelName]
	if !ok || !pc.Enabled || !mok || !mc.Enabled {
		providerName, modelName = cfg.DefaultProvider, cfg.DefaultModel
		pc, ok = cfg.Providers[providerName]
		if ok {
			mc, mok = pc.Models[modelName]
		}
		if !ok || !pc.Enabled || !mok || !mc.Enabled {
			return resolved{provider: ProviderMock, modelID: "mock-default", cfg: f.baseCfg}
		}
	}

	ptype, err := ParseProviderType(providerName)
	if err != nil {
		return resolved{provider: ProviderMock, modelID: "mock-default", cfg: f.baseCfg}
	}

	c := f.baseCfg
	c.BaseURL = pc.BaseURL
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL(ptype)
	}
	c.Region = pc.Region
	if pc.APIKeyEnv != "" {
		c.APIKey = os.Getenv(pc.APIKeyEnv)
	} else {
		c.APIKey = GetAPIKeyFromEnv(ptype)
	}

	modelID := mc.ModelID
	if modelID == "" {
		modelID = modelName
	}
	return resolved{provider: ptype, modelID: modelID, cfg: c}
}

// Generate produces text for the prompt. Provider selection, retries and
// the mock fallback are internal; the returned string is always usable.
func (f *Facade) Generate(ctx context.Context, prompt string, opts GenerateOptions) string {
	r := f.resolve(opts.Provider, opts.Model)

	req := &Request{
		Model:       r.modelID,
		Prompt:      prompt,
		System:      opts.System,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	if r.provider != ProviderMock {
		start := time.Now()
		p, err := NewProvider(r.provider, r.cfg)
		if err == nil {
			text, gerr := p.Generate(ctx, req)
			if gerr == nil {
				logger.Debug(ctx, "LLM generation succeeded",
					tag.Provider(string(r.provider)), tag.Model(r.modelID),
					"elapsed", time.Since(start).String())
				return text
			}
			err = gerr
		}
		logger.Warn(ctx, "LLM generation failed, falling back to mock",
			tag.Provider(string(r.provider)), tag.Model(r.modelID), tag.Error(err))
	}

	mock, _ := NewProvider(ProviderMock, DefaultConfig())
	text, _ := mock.Generate(ctx, req)
	return text
}

// GenerateStructured appends schema instructions to the prompt and
// best-effort extracts the first JSON object from the response. On parse
// failure the raw text comes back under "response".
func (f *Facade) GenerateStructured(ctx context.Context, prompt string, schema map[string]any, opts GenerateOptions) map[string]any {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		schemaJSON = []byte("{}")
	}
	full := prompt + "\n\nRespond with a single JSON object matching this schema:\n" + string(schemaJSON)

	raw := f.Generate(ctx, full, opts)

	if span := extractJSONObject(raw); span != "" {
		var out map[string]any
		if err := json.Unmarshal([]byte(span), &out); err == nil {
			return out
		}
	}
	return map[string]any{"response": raw}
}

// ListAvailableModels enumerates the enabled models across providers.
func (f *Facade) ListAvailableModels() []ModelRef {
	return f.manager.EnabledModels()
}

// GetRecommendedModel returns the best provider and model for a task tag.
func (f *Facade) GetRecommendedModel(taskTag string) (string, string) {
	return f.manager.RecommendedModel(taskTag)
}

// extractJSONObject returns the first balanced { ... } span in s, or
// empty when none closes.
func extractJSONObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return ""
}
