package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
)

// Registry owns the instantiated tools. Loading builds a fresh tool set
// and swaps it in atomically, so executions in flight keep the instance
// they resolved.
type Registry struct {
	toolsDir      string
	mcpDir        string
	deps          Deps
	remoteTimeout time.Duration

	mu          sync.RWMutex
	tools       map[string]Tool
	descriptors map[string]Descriptor
	localFiles  map[string]string
	remoteFiles map[string]string
	servers     map[string]string
}

// NewRegistry creates an empty registry over the two descriptor
// directories.
func NewRegistry(toolsDir, mcpDir string, deps Deps) *Registry {
	return &Registry{
		toolsDir:      toolsDir,
		mcpDir:        mcpDir,
		deps:          deps,
		remoteTimeout: DefaultRemoteTimeout,
		tools:         map[string]Tool{},
		descriptors:   map[string]Descriptor{},
		localFiles:    map[string]string{},
		remoteFiles:   map[string]string{},
		servers:       map[string]string{},
	}
}

// Load reads every descriptor file and instantiates enabled tools. A bad
// file is skipped and reported; it never fails the load.
func (r *Registry) Load(ctx context.Context) []error {
	tools := map[string]Tool{}
	descriptors := map[string]Descriptor{}
	localFiles := map[string]string{}
	remoteFiles := map[string]string{}
	servers := map[string]string{}
	var errs []error

	paths, err := listJSONFiles(r.toolsDir)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read tools directory: %w", err))
	}
	for _, path := range paths {
		d, err := readLocalDescriptor(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		localFiles[d.Name] = path
		descriptors[d.Name] = Descriptor{
			Name:        d.Name,
			Description: d.Description,
			Kind:        KindLocal,
			Module:      d.Module,
			Enabled:     d.Enabled,
		}
		if !d.Enabled {
			continue
		}
		factory, ok := Lookup(d.Module)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s: unknown module %q", core.ErrInvalidDescriptor, path, d.Module))
			continue
		}
		t, err := factory(d.Name, d.Config, r.deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %s", core.ErrInvalidDescriptor, path, err))
			continue
		}
		tools[d.Name] = t
	}

	paths, err = listJSONFiles(r.mcpDir)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read mcp directory: %w", err))
	}
	for _, path := range paths {
		d, err := readRemoteDescriptor(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		remoteFiles[d.Name] = path
		servers[d.Name] = d.MCPURL
		for _, spec := range d.ToolDescription.Tools {
			rt, err := NewRemoteTool(d.Name, d.MCPURL, spec, r.remoteTimeout)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			descriptors[rt.Name()] = Descriptor{
				Name:        rt.Name(),
				Description: spec.Description,
				Kind:        KindRemote,
				Server:      d.Name,
				Enabled:     !d.Disabled,
			}
			if !d.Disabled {
				tools[rt.Name()] = rt
			}
		}
	}

	r.mu.Lock()
	r.tools = tools
	r.descriptors = descriptors
	r.localFiles = localFiles
	r.remoteFiles = remoteFiles
	r.servers = servers
	r.mu.Unlock()

	logger.Info(ctx, "Tool registry loaded",
		"tools", len(tools), "descriptors", len(descriptors), "errors", len(errs))
	return errs
}

// Execute runs the named tool and wraps the outcome in an envelope.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) Envelope {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return errorEnvelope(name, "Tool not found: "+name)
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		logger.Warn(ctx, "Tool execution failed", tag.Tool(name), tag.Error(err))
		return errorEnvelope(name, err.Error())
	}
	return successEnvelope(name, result)
}

// Get returns the instantiated tool, if enabled.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every known descriptor, enabled or not, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetEnabled flips a tool's enabled flag, persists it to the descriptor
// file, and reloads the registry.
func (r *Registry) SetEnabled(ctx context.Context, name string, enabled bool) error {
	r.mu.RLock()
	d, ok := r.descriptors[name]
	localPath := r.localFiles[name]
	remotePath := r.remoteFiles[d.Server]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: tool %s", core.ErrInvalidDescriptor, name)
	}

	switch d.Kind {
	case KindLocal:
		ld, err := readLocalDescriptor(localPath)
		if err != nil {
			return err
		}
		ld.Enabled = enabled
		if err := writeDescriptorFile(localPath, ld); err != nil {
			return fmt.Errorf("failed to persist tool flag: %w", err)
		}
	case KindRemote:
		rd, err := readRemoteDescriptor(remotePath)
		if err != nil {
			return err
		}
		rd.Disabled = !enabled
		if err := writeDescriptorFile(remotePath, rd); err != nil {
			return fmt.Errorf("failed to persist tool flag: %w", err)
		}
	}

	r.Load(ctx)
	return nil
}

// ServerStatuses probes every remote server's health endpoint.
func (r *Registry) ServerStatuses(ctx context.Context) []ServerStatus {
	r.mu.RLock()
	servers := make(map[string]string, len(r.servers))
	for name, url := range r.servers {
		servers[name] = url
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ServerStatus, 0, len(names))
	for _, name := range names {
		out = append(out, checkServer(ctx, name, servers[name], r.remoteTimeout))
	}
	return out
}
