// Package llm defines the provider abstraction and the runtime model
// configuration behind the generation facade. Provider implementations
// live in subpackages and register themselves at init time.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ProviderType identifies an LLM provider implementation.
type ProviderType string

const (
	ProviderAnthropic   ProviderType = "anthropic"
	ProviderOpenAI      ProviderType = "openai"
	ProviderGemini      ProviderType = "gemini"
	ProviderBedrock     ProviderType = "bedrock"
	ProviderLlama       ProviderType = "llama"
	ProviderDeepSeek    ProviderType = "deepseek"
	ProviderHuggingFace ProviderType = "huggingface"
	ProviderMock        ProviderType = "mock"
)

// Errors returned by the provider layer.
var (
	ErrInvalidProvider = errors.New("invalid provider")
	ErrNoAPIKey        = errors.New("API key not configured")
)

// Request is a single-turn generation request.
type Request struct {
	Model       string
	Prompt      string
	System      string
	Temperature *float64
	MaxTokens   *int
}

// Provider generates text for a request.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (string, error)
}

// Config configures a provider instance.
type Config struct {
	Provider        ProviderType
	APIKey          string
	BaseURL         string
	Region          string
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig returns the baseline retry and timeout settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         60 * time.Second,
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// ProviderFactory creates a provider from a config.
type ProviderFactory func(cfg Config) (Provider, error)

var registry = make(map[ProviderType]ProviderFactory)

// RegisterProvider registers a provider factory. Called from provider
// package init functions.
func RegisterProvider(t ProviderType, factory ProviderFactory) {
	registry[t] = factory
}

// NewProvider creates a provider of the given type.
func NewProvider(t ProviderType, cfg Config) (Provider, error) {
	factory, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, t)
	}
	cfg.Provider = t
	return factory(cfg)
}

// ParseProviderType normalizes a provider name from configuration.
func ParseProviderType(s string) (ProviderType, error) {
	switch s {
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "openai":
		return ProviderOpenAI, nil
	case "gemini", "google":
		return ProviderGemini, nil
	case "bedrock", "aws":
		return ProviderBedrock, nil
	case "llama":
		return ProviderLlama, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "huggingface", "hf":
		return ProviderHuggingFace, nil
	case "mock":
		return ProviderMock, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
	}
}

// DefaultAPIKeyEnvVar returns the conventional env var for a provider's
// API key. Bedrock authenticates through AWS credentials and mock needs
// none, so both return empty.
func DefaultAPIKeyEnvVar(t ProviderType) string {
	switch t {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GOOGLE_API_KEY"
	case ProviderLlama:
		return "LLAMA_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderHuggingFace:
		return "HF_TOKEN"
	default:
		return ""
	}
}

// DefaultBaseURL returns the provider's default API endpoint.
func DefaultBaseURL(t ProviderType) string {
	switch t {
	case ProviderAnthropic:
		return "https://api.anthropic.com"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	case ProviderGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	case ProviderLlama:
		return "https://api.llama.com/compat/v1"
	case ProviderDeepSeek:
		return "https://api.deepseek.com/v1"
	case ProviderHuggingFace:
		return "https://api-inference.huggingface.co"
	default:
		return ""
	}
}

// GetAPIKeyFromEnv reads the provider's API key from the environment.
func GetAPIKeyFromEnv(t ProviderType) string {
	env := DefaultAPIKeyEnvVar(t)
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// APIError is a non-2xx response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status warrants another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode <= 504)
}

// NewAPIError creates an APIError.
func NewAPIError(provider string, status int, body string) *APIError {
	return &APIError{Provider: provider, StatusCode: status, Body: body}
}
