package dag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/graph"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
)

// Info is the listing view of a registered DAG.
type Info struct {
	DagID       string `json:"dag_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	NodeCount   int    `json:"node_count"`
}

// Registry loads graph definition files from a directory. Reads are
// lock-free against the loaded map; mutations take the registry lock and
// persist to disk atomically.
type Registry struct {
	dir string

	mu    sync.RWMutex
	dags  map[string]*Definition
	files map[string]string
}

// NewRegistry creates a registry over the definitions directory.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		dags:  map[string]*Definition{},
		files: map[string]string{},
	}
}

// Load reads every definition file, replacing the map atomically. A file
// that fails to parse or validate is skipped and reported; the load
// itself never fails.
func (r *Registry) Load(ctx context.Context) []error {
	dags := map[string]*Definition{}
	files := map[string]string{}
	var errs []error

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to read dags directory: %w", err))
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !hasDefinitionExt(name) {
			continue
		}
		path := filepath.Join(r.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %s", core.ErrInvalidGraph, path, err))
			continue
		}
		def, err := Parse(data, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := dags[def.DagID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s: duplicate dag id %q", core.ErrInvalidGraph, path, def.DagID))
			continue
		}
		dags[def.DagID] = def
		files[def.DagID] = path
	}

	r.mu.Lock()
	r.dags = dags
	r.files = files
	r.mu.Unlock()

	logger.Info(ctx, "DAG registry loaded", "dags", len(dags), "errors", len(errs))
	return errs
}

func hasDefinitionExt(name string) bool {
	return strings.HasSuffix(name, ".json") ||
		strings.HasSuffix(name, ".yaml") ||
		strings.HasSuffix(name, ".yml")
}

// Get returns the definition for a dag id.
func (r *Registry) Get(dagID string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.dags[dagID]
	return def, ok
}

// Materialize builds a fresh Graph for the dag id.
func (r *Registry) Materialize(dagID string) (*graph.Graph, error) {
	def, ok := r.Get(dagID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dag %q", core.ErrInvalidGraph, dagID)
	}
	return def.Materialize()
}

// List returns the registered DAGs sorted by id.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.dags))
	for _, def := range r.dags {
		out = append(out, Info{
			DagID:       def.DagID,
			Name:        def.Name,
			Description: def.Description,
			NodeCount:   len(def.Nodes),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DagID < out[j].DagID })
	return out
}

// Add validates and persists a new definition, then registers it.
func (r *Registry) Add(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.dags[def.DagID]; exists {
		return fmt.Errorf("%w: dag %q already exists", core.ErrInvalidGraph, def.DagID)
	}
	path := filepath.Join(r.dir, def.DagID+".json")
	if err := writeDefinitionFile(path, def); err != nil {
		return err
	}
	r.dags[def.DagID] = def
	r.files[def.DagID] = path
	logger.Info(ctx, "DAG added", tag.DAG(def.DagID))
	return nil
}

// Update validates and persists a replacement definition.
func (r *Registry) Update(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	path, exists := r.files[def.DagID]
	if !exists {
		return fmt.Errorf("%w: unknown dag %q", core.ErrInvalidGraph, def.DagID)
	}
	if err := writeDefinitionFile(path, def); err != nil {
		return err
	}
	r.dags[def.DagID] = def
	logger.Info(ctx, "DAG updated", tag.DAG(def.DagID))
	return nil
}

// Delete removes a definition from disk and the registry.
func (r *Registry) Delete(ctx context.Context, dagID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, exists := r.files[dagID]
	if !exists {
		return fmt.Errorf("%w: unknown dag %q", core.ErrInvalidGraph, dagID)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete dag file: %w", err)
	}
	delete(r.dags, dagID)
	delete(r.files, dagID)
	logger.Info(ctx, "DAG deleted", tag.DAG(dagID))
	return nil
}

// writeDefinitionFile persists a definition with write-temp + rename so
// a crash cannot leave a half-written file. The encoding follows the
// file extension.
func writeDefinitionFile(path string, def *Definition) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(def)
	} else {
		data, err = json.MarshalIndent(def, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode dag definition: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write dag definition: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to persist dag definition: %w", err)
	}
	return nil
}
