// Package config holds the resolved runtime configuration. Values come
// from defaults under a single data directory, overridden by ORCA_*
// environment variables. Secrets such as provider API keys stay in the
// environment and are read by the LLM config layer, not here.
package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config is the resolved engine configuration.
type Config struct {
	// DataDir is the root for all engine-managed files.
	DataDir string

	// DAGsDir holds workflow definition files (JSON or YAML).
	DAGsDir string

	// ToolsDir holds local tool descriptor files.
	ToolsDir string

	// MCPDir holds remote tool server descriptor files.
	MCPDir string

	// AgentsDir holds agent descriptor files.
	AgentsDir string

	// TemplatesDir holds documentation template files.
	TemplatesDir string

	// LLMConfigPath is the hot-reloaded provider configuration file.
	LLMConfigPath string

	// DebugDir receives per-node debug artifacts written by tools.
	DebugDir string

	// DBDriver is "sqlite" or "postgres".
	DBDriver string

	// DBDSN is the connection string. For sqlite this is a file path.
	DBDSN string

	// Debug enables debug logging.
	Debug bool

	// LogFormat is "text" or "json".
	LogFormat string
}

// Load resolves the configuration from defaults and the environment.
func Load() *Config {
	dataDir := envStr("ORCA_DATA_DIR", defaultDataDir())
	cfg := &Config{
		DataDir:       dataDir,
		DAGsDir:       envStr("ORCA_DAGS_DIR", filepath.Join(dataDir, "dags")),
		ToolsDir:      envStr("ORCA_TOOLS_DIR", filepath.Join(dataDir, "tools")),
		MCPDir:        envStr("ORCA_MCP_DIR", filepath.Join(dataDir, "mcp")),
		AgentsDir:     envStr("ORCA_AGENTS_DIR", filepath.Join(dataDir, "agents")),
		TemplatesDir:  envStr("ORCA_TEMPLATES_DIR", filepath.Join(dataDir, "templates")),
		LLMConfigPath: envStr("ORCA_LLM_CONFIG", filepath.Join(dataDir, "llm_config.json")),
		DebugDir:      envStr("ORCA_DEBUG_DIR", filepath.Join(dataDir, "debug")),
		DBDriver:      envStr("ORCA_DB_DRIVER", "sqlite"),
		DBDSN:         envStr("ORCA_DB_DSN", ""),
		Debug:         envBool("ORCA_DEBUG", false),
		LogFormat:     envStr("ORCA_LOG_FORMAT", "text"),
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = filepath.Join(dataDir, "orca.db")
	}
	return cfg
}

// EnsureDirs creates every configured directory that does not exist yet.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{
		c.DataDir, c.DAGsDir, c.ToolsDir, c.MCPDir,
		c.AgentsDir, c.TemplatesDir, c.DebugDir,
	} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".orca"
	}
	return filepath.Join(home, ".orca")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
