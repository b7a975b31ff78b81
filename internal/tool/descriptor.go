package tool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orcabase/orca/internal/core"
)

// LocalDescriptor is the on-disk form of a local tool.
type LocalDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Module      string         `json:"module"`
	Config      map[string]any `json:"config,omitempty"`
	Enabled     bool           `json:"enabled"`
}

// RemoteToolSpec is one tool exposed by a remote server.
type RemoteToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// RemoteDescriptor is the on-disk form of a remote MCP-style server.
type RemoteDescriptor struct {
	Name            string `json:"name"`
	MCPURL          string `json:"mcp_url"`
	ToolDescription struct {
		Tools []RemoteToolSpec `json:"tools"`
	} `json:"tool_description"`
	Disabled bool `json:"disabled,omitempty"`
}

// Descriptor is the registry's view of one registered tool, local or
// remote.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Module      string `json:"module,omitempty"`
	Server      string `json:"server,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Descriptor kinds.
const (
	KindLocal  = "local"
	KindRemote = "remote"
)

func readLocalDescriptor(path string) (*LocalDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	var d LocalDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	if d.Name == "" || d.Module == "" {
		return nil, fmt.Errorf("%w: %s: name and module are required", core.ErrInvalidDescriptor, path)
	}
	return &d, nil
}

func readRemoteDescriptor(path string) (*RemoteDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	var d RemoteDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err)
	}
	if d.Name == "" || d.MCPURL == "" {
		return nil, fmt.Errorf("%w: %s: name and mcp_url are required", core.ErrInvalidDescriptor, path)
	}
	return &d, nil
}

// writeDescriptorFile persists a descriptor atomically, so a crash mid
// write never leaves a truncated file behind.
func writeDescriptorFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
