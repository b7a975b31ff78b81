// Package bearer implements a generic bearer-token chat completions
// adapter for OpenAI-compatible hosted endpoints. Both the Llama and
// DeepSeek provider types register through it.
package bearer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orcabase/orca/internal/llm"
)

const chatCompletionsPath = "/chat/completions"

func init() {
	llm.RegisterProvider(llm.ProviderLlama, New)
	llm.RegisterProvider(llm.ProviderDeepSeek, New)
}

var _ llm.Provider = (*Provider)(nil)

type Provider struct {
	name       string
	config     llm.Config
	httpClient *llm.HTTPClient
}

// New creates a bearer-token chat provider.
func New(cfg llm.Config) (llm.Provider, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}
	return &Provider{
		name:       string(cfg.Provider),
		config:     cfg,
		httpClient: llm.NewHTTPClient(cfg),
	}, nil
}

func (p *Provider) Name() string { return p.name }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	msgs := []message{}
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, message{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	respBody, err := p.httpClient.PostJSON(ctx, p.config.BaseURL+chatCompletionsPath, body, map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
