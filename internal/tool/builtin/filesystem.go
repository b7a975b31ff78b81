package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/orcabase/orca/internal/tool"
)

func init() {
	tool.Register("filesystem", newFilesystemTool)
}

// filesystemTool performs list, read and write operations confined to a
// configured base directory.
type filesystemTool struct {
	name    string
	baseDir string
}

type filesystemConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

func newFilesystemTool(name string, config map[string]any, _ tool.Deps) (tool.Tool, error) {
	var cfg filesystemConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("filesystem tool requires config.base_dir")
	}
	return &filesystemTool{name: name, baseDir: cfg.BaseDir}, nil
}

func (t *filesystemTool) Name() string { return t.name }

// resolve joins the relative path under the base dir and refuses
// escapes.
func (t *filesystemTool) resolve(rel string) (string, error) {
	full := filepath.Join(t.baseDir, rel)
	base := filepath.Clean(t.baseDir) + string(os.PathSeparator)
	if full != filepath.Clean(t.baseDir) && !strings.HasPrefix(full, base) {
		return "", fmt.Errorf("path escapes base directory: %s", rel)
	}
	return full, nil
}

func (t *filesystemTool) Execute(_ context.Context, args map[string]any) (any, error) {
	op, _ := args["operation"].(string)
	rel, _ := args["path"].(string)

	switch op {
	case "list":
		full, err := t.resolve(rel)
		if err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		return map[string]any{"entries": names}, nil

	case "read":
		full, err := t.resolve(rel)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return map[string]any{"content": string(data)}, nil

	case "write":
		full, err := t.resolve(rel)
		if err != nil {
			return nil, err
		}
		content, _ := args["content"].(string)
		if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write file: %w", err)
		}
		return map[string]any{"written": len(content), "path": rel}, nil

	default:
		return nil, fmt.Errorf("unknown operation %q, want list, read or write", op)
	}
}
