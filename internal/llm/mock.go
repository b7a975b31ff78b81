package llm

import (
	"context"
	"strings"
)

func init() {
	RegisterProvider(ProviderMock, func(cfg Config) (Provider, error) {
		return &mockProvider{}, nil
	})
}

// mockProvider returns deterministic canned responses keyed off prompt
// substrings. It backs tests and is the terminal fallback when no real
// provider is usable, so it never fails.
type mockProvider struct{}

func (m *mockProvider) Name() string { return string(ProviderMock) }

func (m *mockProvider) Generate(_ context.Context, req *Request) (string, error) {
	prompt := strings.ToLower(req.Prompt)
	switch {
	case strings.Contains(prompt, "create a plan") || strings.Contains(prompt, "plan for"):
		return `{"plan": [{"step": 1, "action": "Analyze the request"}, {"step": 2, "action": "Execute the workflow"}, {"step": 3, "action": "Summarize the results"}]}`, nil
	case strings.Contains(prompt, "json") && strings.Contains(prompt, "schema"):
		return `{"response": "This is a mock structured response.", "status": "ok"}`, nil
	case strings.Contains(prompt, "tools available"):
		return "The following tools are available: echo, filesystem, llm_summarization.", nil
	case strings.Contains(prompt, "agents available"):
		return "The following agents are available: echo_agent, summarizer_agent.", nil
	default:
		echo := req.Prompt
		if len(echo) > 100 {
			echo = echo[:100]
		}
		return "Mock response to: " + echo, nil
	}
}
