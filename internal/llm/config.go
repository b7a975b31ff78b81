package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orcabase/orca/internal/logger"
)

// DefaultRefreshInterval is the fallback background reload period.
const DefaultRefreshInterval = 600 * time.Second

// ModelConfig describes one model offered by a provider.
type ModelConfig struct {
	Enabled                 bool     `json:"enabled"`
	ModelID                 string   `json:"model_id"`
	Description             string   `json:"description,omitempty"`
	BestFor                 []string `json:"best_for,omitempty"`
	SupportsVision          bool     `json:"supports_vision,omitempty"`
	SupportsFunctionCalling bool     `json:"supports_function_calling,omitempty"`
	ContextWindow           int      `json:"context_window,omitempty"`
	CostPer1MInputTokens    float64  `json:"cost_per_1m_input_tokens,omitempty"`
}

// ProviderConfig describes one provider and its models.
type ProviderConfig struct {
	Enabled   bool                   `json:"enabled"`
	APIKeyEnv string                 `json:"api_key_env,omitempty"`
	BaseURL   string                 `json:"base_url,omitempty"`
	Region    string                 `json:"region,omitempty"`
	Models    map[string]ModelConfig `json:"models"`
}

// FileConfig is the on-disk model configuration.
type FileConfig struct {
	DefaultProvider        string                    `json:"default_provider"`
	DefaultModel           string                    `json:"default_model"`
	RefreshIntervalSeconds int                       `json:"refresh_interval_seconds,omitempty"`
	Providers              map[string]ProviderConfig `json:"providers"`
}

// ModelRef identifies one enabled model.
type ModelRef struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Info     ModelConfig `json:"info"`
}

// defaultFileConfig keeps the engine usable with no configuration file:
// everything routes to the deterministic mock provider.
func defaultFileConfig() *FileConfig {
	return &FileConfig{
		DefaultProvider: string(ProviderMock),
		DefaultModel:    "mock-default",
		Providers: map[string]ProviderConfig{
			string(ProviderMock): {
				Enabled: true,
				Models: map[string]ModelConfig{
					"mock-default": {Enabled: true, ModelID: "mock-default"},
				},
			},
		},
	}
}

// ConfigManager owns the hot-reloaded model configuration. Readers take
// an immutable snapshot under the lock and release it before any I/O, so
// a reload mid-call never affects an in-flight generation.
type ConfigManager struct {
	path string

	mu  sync.RWMutex
	cfg *FileConfig

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// NewConfigManager loads the configuration file and starts the reload
// loop. A missing or unreadable file falls back to the mock-only default.
func NewConfigManager(ctx context.Context, path string) *ConfigManager {
	m := &ConfigManager{
		path: path,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if err := m.reload(ctx); err != nil {
		logger.Warn(ctx, "LLM config unavailable, using mock defaults", "err", err, "path", path)
		m.mu.Lock()
		m.cfg = defaultFileConfig()
		m.mu.Unlock()
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(path); err != nil {
			logger.Warn(ctx, "Cannot watch LLM config file", "err", err, "path", path)
			_ = watcher.Close()
			watcher = nil
		}
	} else {
		logger.Warn(ctx, "Cannot create LLM config watcher", "err", err)
		watcher = nil
	}
	m.watcher = watcher

	go m.run(ctx)
	return m
}

// Stop terminates the reload loop.
func (m *ConfigManager) Stop() {
	close(m.stop)
	<-m.done
}

func (m *ConfigManager) run(ctx context.Context) {
	defer close(m.done)
	defer func() {
		if m.watcher != nil {
			_ = m.watcher.Close()
		}
	}()

	ticker := time.NewTicker(m.refreshInterval())
	defer ticker.Stop()

	var events chan fsnotify.Event
	var errs chan error
	if m.watcher != nil {
		events = m.watcher.Events
		errs = m.watcher.Errors
	}

	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				m.reloadAndLog(ctx)
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		case <-ticker.C:
			m.reloadAndLog(ctx)
			ticker.Reset(m.refreshInterval())
		}
	}
}

func (m *ConfigManager) reloadAndLog(ctx context.Context) {
	if err := m.reload(ctx); err != nil {
		logger.Warn(ctx, "LLM config reload failed, keeping previous config", "err", err)
	}
}

func (m *ConfigManager) reload(ctx context.Context) error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read LLM config: %w", err)
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse LLM config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
	logger.Debug(ctx, "LLM config loaded", "providers", len(cfg.Providers))
	return nil
}

func (m *ConfigManager) refreshInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg != nil && m.cfg.RefreshIntervalSeconds > 0 {
		return time.Duration(m.cfg.RefreshIntervalSeconds) * time.Second
	}
	return DefaultRefreshInterval
}

// Snapshot returns the current configuration. The returned value must be
// treated as read-only.
func (m *ConfigManager) Snapshot() *FileConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// providerOrder returns provider names in stable enumeration order.
func providerOrder(cfg *FileConfig) []string {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func modelOrder(pc ProviderConfig) []string {
	names := make([]string, 0, len(pc.Models))
	for name := range pc.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledModels enumerates every enabled model of every enabled provider.
func (m *ConfigManager) EnabledModels() []ModelRef {
	cfg := m.Snapshot()
	var out []ModelRef
	for _, pname := range providerOrder(cfg) {
		pc := cfg.Providers[pname]
		if !pc.Enabled {
			continue
		}
		for _, mname := range modelOrder(pc) {
			mc := pc.Models[mname]
			if !mc.Enabled {
				continue
			}
			out = append(out, ModelRef{Provider: pname, Model: mname, Info: mc})
		}
	}
	return out
}

// DefaultProviderModel returns the configured default binding.
func (m *ConfigManager) DefaultProviderModel() (string, string) {
	cfg := m.Snapshot()
	return cfg.DefaultProvider, cfg.DefaultModel
}

// ModelInfo returns the configuration of one model, if present.
func (m *ConfigManager) ModelInfo(provider, model string) (ModelConfig, bool) {
	cfg := m.Snapshot()
	pc, ok := cfg.Providers[provider]
	if !ok {
		return ModelConfig{}, false
	}
	mc, ok := pc.Models[model]
	return mc, ok
}

// RecommendedModel ranks enabled models against the task tag. An exact
// best_for match scores 10, a substring match 5; ties break on first
// enumerated. No hit returns the default binding.
func (m *ConfigManager) RecommendedModel(taskTag string) (string, string) {
	best := 0
	var bestRef *ModelRef
	for _, ref := range m.EnabledModels() {
		score := 0
		for _, tag := range ref.Info.BestFor {
			switch {
			case tag == taskTag:
				score = 10
			case score < 5 && taskTag != "" && tag != "" &&
				(strings.Contains(tag, taskTag) || strings.Contains(taskTag, tag)):
				score = 5
			}
		}
		if score > best {
			best = score
			r := ref
			bestRef = &r
		}
	}
	if bestRef == nil {
		return m.DefaultProviderModel()
	}
	return bestRef.Provider, bestRef.Model
}
