package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProvider counts calls and optionally fails every one.
type recordingProvider struct {
	calls atomic.Int32
	fail  bool
}

func (p *recordingProvider) Name() string { return "recording" }
func (p *recordingProvider) Generate(context.Context, *Request) (string, error) {
	p.calls.Add(1)
	if p.fail {
		return "", fmt.Errorf("provider down")
	}
	return "real response", nil
}

func facadeWithProvider(t *testing.T, p Provider) *Facade {
	t.Helper()

	orig := registry
	t.Cleanup(func() { registry = orig })
	registry = map[ProviderType]ProviderFactory{
		ProviderMock:      orig[ProviderMock],
		ProviderAnthropic: func(Config) (Provider, error) { return p, nil },
	}

	cfg := `{
		"default_provider": "anthropic", "default_model": "claude",
		"providers": {"anthropic": {"enabled": true, "models": {
			"claude": {"enabled": true, "model_id": "claude-test"}}}}}`
	m := NewConfigManager(context.Background(), writeTestConfig(t, cfg))
	t.Cleanup(m.Stop)
	return NewFacade(m)
}

func TestGenerateUsesConfiguredProvider(t *testing.T) {
	p := &recordingProvider{}
	f := facadeWithProvider(t, p)

	out := f.Generate(context.Background(), "hello", GenerateOptions{})
	assert.Equal(t, "real response", out)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestGenerateFallsBackToMockOnProviderError(t *testing.T) {
	p := &recordingProvider{fail: true}
	f := facadeWithProvider(t, p)

	out := f.Generate(context.Background(), "hello there", GenerateOptions{})
	assert.Contains(t, out, "Mock response to: hello there")
}

func TestGenerateFallsBackToMockOnUnknownBinding(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testConfig)
	f := NewFacade(m)

	out := f.Generate(context.Background(), "hi", GenerateOptions{Provider: "nonexistent"})
	assert.Contains(t, out, "Mock response to: hi")
}

func TestGenerateStructuredExtractsJSON(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testConfig)
	f := NewFacade(m)

	// The mock provider answers "json"+"schema" prompts with a JSON object.
	out := f.GenerateStructured(context.Background(), "please produce json",
		map[string]any{"type": "object"}, GenerateOptions{})
	assert.Equal(t, "ok", out["status"])
}

func TestGenerateStructuredWrapsUnparseableOutput(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, testConfig)
	f := NewFacade(m)

	out := f.GenerateStructured(context.Background(), "just talk", nil, GenerateOptions{})
	raw, ok := out["response"].(string)
	require.True(t, ok)
	assert.Contains(t, raw, "Mock response to:")
}

func TestHTTPClientRetriesOn5xx(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(NewConfig(
		WithMaxRetries(3),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithTimeout(5*time.Second),
	))
	body, err := client.PostJSON(context.Background(), srv.URL, []byte("{}"), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPClientStopsOn4xx(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewHTTPClient(NewConfig(
		WithMaxRetries(3),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	))
	_, err := client.PostJSON(context.Background(), srv.URL, []byte("{}"), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Bare", `{"a":1}`, `{"a":1}`},
		{"Surrounded", `Here you go: {"a":1} done`, `{"a":1}`},
		{"Nested", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`},
		{"BracesInString", `{"a":"}{"}`, `{"a":"}{"}`},
		{"Unclosed", `{"a":1`, ""},
		{"None", `no json here`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extractJSONObject(tc.input))
		})
	}
}
