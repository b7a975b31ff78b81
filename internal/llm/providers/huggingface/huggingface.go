// Package huggingface implements the HuggingFace inference API adapter.
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orcabase/orca/internal/llm"
)

const providerName = "huggingface"

func init() {
	llm.RegisterProvider(llm.ProviderHuggingFace, New)
}

var _ llm.Provider = (*Provider)(nil)

type Provider struct {
	config     llm.Config
	httpClient *llm.HTTPClient
}

// New creates a HuggingFace provider.
func New(cfg llm.Config) (llm.Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}
	return &Provider{config: cfg, httpClient: llm.NewHTTPClient(cfg)}, nil
}

func (p *Provider) Name() string { return providerName }

type inferenceRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type inferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	params := map[string]any{"return_full_text": false}
	if req.Temperature != nil {
		params["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		params["max_new_tokens"] = *req.MaxTokens
	}

	body, err := json.Marshal(inferenceRequest{Inputs: prompt, Parameters: params})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	respBody, err := p.httpClient.PostJSON(ctx, p.config.BaseURL+"/models/"+req.Model, body, map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var results []inferenceResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("empty inference response")
	}
	return results[0].GeneratedText, nil
}
