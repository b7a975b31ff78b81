package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcabase/orca/internal/core"
)

func remoteServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteToolExecute(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/execute", r.URL.Path)
		var req executeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "search", req.Tool)
		assert.Equal(t, "golang", req.Arguments["query"])
		_, _ = w.Write([]byte(`{"hits": 3}`))
	})

	rt, err := NewRemoteTool("docs", srv.URL, RemoteToolSpec{Name: "search"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "docs_search", rt.Name())

	result, err := rt.Execute(context.Background(), map[string]any{"query": "golang"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hits": float64(3)}, result)
}

func TestRemoteToolNon200(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	rt, err := NewRemoteTool("docs", srv.URL, RemoteToolSpec{Name: "search"}, time.Second)
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), nil)
	require.ErrorIs(t, err, core.ErrRemoteTool)
	assert.Contains(t, err.Error(), "502")
}

func TestRemoteToolMalformedBody(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})

	rt, err := NewRemoteTool("docs", srv.URL, RemoteToolSpec{Name: "search"}, time.Second)
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), nil)
	require.ErrorIs(t, err, core.ErrRemoteTool)
	assert.Contains(t, err.Error(), "malformed")
}

func TestRemoteToolTimeout(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte(`{}`))
	})

	rt, err := NewRemoteTool("docs", srv.URL, RemoteToolSpec{Name: "slow"}, 50*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = rt.Execute(context.Background(), nil)
	require.ErrorIs(t, err, core.ErrRemoteTool)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRemoteToolSchemaValidation(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	rt, err := NewRemoteTool("docs", srv.URL, RemoteToolSpec{
		Name: "search",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []any{"query"},
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
		},
	}, time.Second)
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), map[string]any{})
	require.ErrorIs(t, err, core.ErrRemoteTool)
	assert.Contains(t, err.Error(), "invalid arguments")

	_, err = rt.Execute(context.Background(), map[string]any{"query": "ok"})
	assert.NoError(t, err)
}

func TestRegistryLoadsRemoteDescriptors(t *testing.T) {
	t.Parallel()

	srv := remoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte(`"pong"`))
	})

	r, _, mcpDir := newTestRegistry(t)
	desc := RemoteDescriptor{Name: "utils", MCPURL: srv.URL}
	desc.ToolDescription.Tools = []RemoteToolSpec{
		{Name: "ping", Description: "liveness probe"},
	}
	writeJSON(t, mcpDir, "utils.json", desc)

	errs := r.Load(context.Background())
	assert.Empty(t, errs)

	env := r.Execute(context.Background(), "utils_ping", nil)
	assert.True(t, env.Success)
	assert.Equal(t, "pong", env.Result)

	statuses := r.ServerStatuses(context.Background())
	require.Len(t, statuses, 1)
	assert.Equal(t, "utils", statuses[0].Name)
	assert.True(t, statuses[0].Healthy)
}
