package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orcabase/orca/internal/core"
)

// DefaultRemoteTimeout bounds every remote tool call.
const DefaultRemoteTimeout = 30 * time.Second

// RemoteTool proxies execution to an MCP-style tool server.
type RemoteTool struct {
	name       string
	remoteName string
	serverURL  string
	client     *resty.Client
	schema     *jsonschema.Resolved
}

var _ Tool = (*RemoteTool)(nil)

// NewRemoteTool creates a remote tool adapter. The registry name is
// prefixed with the server name so tools from different servers cannot
// collide. An invalid input schema rejects the descriptor.
func NewRemoteTool(serverName, serverURL string, spec RemoteToolSpec, timeout time.Duration) (*RemoteTool, error) {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	t := &RemoteTool{
		name:       serverName + "_" + spec.Name,
		remoteName: spec.Name,
		serverURL:  serverURL,
		client:     resty.New().SetTimeout(timeout),
	}
	if len(spec.InputSchema) > 0 {
		raw, err := json.Marshal(spec.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("%w: tool %s: %s", core.ErrInvalidDescriptor, t.name, err)
		}
		var schema jsonschema.Schema
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("%w: tool %s: invalid input schema: %s", core.ErrInvalidDescriptor, t.name, err)
		}
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: tool %s: invalid input schema: %s", core.ErrInvalidDescriptor, t.name, err)
		}
		t.schema = resolved
	}
	return t, nil
}

func (t *RemoteTool) Name() string { return t.name }

type executeRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Execute validates the arguments against the remote schema, then POSTs
// them to the server's execute endpoint.
func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if t.schema != nil {
		if err := t.schema.Validate(args); err != nil {
			return nil, fmt.Errorf("%w: invalid arguments for %s: %s", core.ErrRemoteTool, t.remoteName, err)
		}
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(executeRequest{Tool: t.remoteName, Arguments: args}).
		Post(t.serverURL + "/execute")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrRemoteTool, t.serverURL, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: %s returned status %d: %s",
			core.ErrRemoteTool, t.serverURL, resp.StatusCode(), resp.String())
	}

	var result any
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: %s returned malformed body: %s", core.ErrRemoteTool, t.serverURL, err)
	}
	return result, nil
}

// ServerStatus is the health of one remote tool server.
type ServerStatus struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// checkServer probes the server's health endpoint.
func checkServer(ctx context.Context, name, url string, timeout time.Duration) ServerStatus {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	status := ServerStatus{Name: name, URL: url}
	started := time.Now()
	resp, err := resty.New().SetTimeout(timeout).R().SetContext(ctx).Get(url + "/health")
	status.LatencyMS = time.Since(started).Milliseconds()
	switch {
	case err != nil:
		status.Error = err.Error()
	case resp.StatusCode() != 200:
		status.Error = fmt.Sprintf("status %d", resp.StatusCode())
	default:
		status.Healthy = true
	}
	return status
}
