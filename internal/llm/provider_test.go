package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected ProviderType
		wantErr  bool
	}{
		{"anthropic", ProviderAnthropic, false},
		{"claude", ProviderAnthropic, false},
		{"openai", ProviderOpenAI, false},
		{"gemini", ProviderGemini, false},
		{"google", ProviderGemini, false},
		{"bedrock", ProviderBedrock, false},
		{"aws", ProviderBedrock, false},
		{"llama", ProviderLlama, false},
		{"deepseek", ProviderDeepSeek, false},
		{"huggingface", ProviderHuggingFace, false},
		{"hf", ProviderHuggingFace, false},
		{"mock", ProviderMock, false},
		{"unknown", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			result, err := ParseProviderType(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidProvider)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, result)
			}
		})
	}
}

func TestDefaultAPIKeyEnvVar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider ProviderType
		expected string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderGemini, "GOOGLE_API_KEY"},
		{ProviderLlama, "LLAMA_API_KEY"},
		{ProviderDeepSeek, "DEEPSEEK_API_KEY"},
		{ProviderHuggingFace, "HF_TOKEN"},
		{ProviderBedrock, ""},
		{ProviderMock, ""},
	}

	for _, tc := range tests {
		t.Run(string(tc.provider), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, DefaultAPIKeyEnvVar(tc.provider))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 60, int(cfg.Timeout.Seconds()))
	assert.Equal(t, 2, int(cfg.InitialInterval.Seconds()))
}

type staticProvider struct{ name string }

func (s *staticProvider) Name() string { return s.name }
func (s *staticProvider) Generate(context.Context, *Request) (string, error) {
	return "static", nil
}

func TestNewProvider(t *testing.T) {
	orig := registry
	defer func() { registry = orig }()
	registry = map[ProviderType]ProviderFactory{
		ProviderMock: registry[ProviderMock],
	}

	testType := ProviderType("test")
	RegisterProvider(testType, func(_ Config) (Provider, error) {
		return &staticProvider{name: "test"}, nil
	})

	t.Run("CreatesRegisteredProvider", func(t *testing.T) {
		p, err := NewProvider(testType, Config{})
		require.NoError(t, err)
		assert.Equal(t, "test", p.Name())
	})

	t.Run("ErrorsOnUnregistered", func(t *testing.T) {
		_, err := NewProvider(ProviderType("missing"), Config{})
		assert.ErrorIs(t, err, ErrInvalidProvider)
	})
}

func TestAPIErrorRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, NewAPIError("x", 429, "").Retryable())
	assert.True(t, NewAPIError("x", 500, "").Retryable())
	assert.True(t, NewAPIError("x", 503, "").Retryable())
	assert.False(t, NewAPIError("x", 400, "").Retryable())
	assert.False(t, NewAPIError("x", 401, "").Retryable())
	assert.False(t, NewAPIError("x", 404, "").Retryable())
}
