// Package cmd implements the orca command line. Each command builds a
// Context holding the wired engine components and releases it on exit.
package cmd

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/agent"
	"github.com/orcabase/orca/internal/config"
	"github.com/orcabase/orca/internal/dag"
	"github.com/orcabase/orca/internal/llm"
	"github.com/orcabase/orca/internal/logger"
	"github.com/orcabase/orca/internal/logger/tag"
	"github.com/orcabase/orca/internal/orchestrator"
	"github.com/orcabase/orca/internal/store"
	"github.com/orcabase/orca/internal/tool"
)

// Context carries the wired engine components for one command run.
type Context struct {
	context.Context

	Config *config.Config
	Store  *store.Store
	DAGs   *dag.Registry
	Tools  *tool.Registry
	Agents *agent.Registry
	LLM    *llm.ConfigManager
	Facade *llm.Facade
	Orc    *orchestrator.Orchestrator
}

// NewContext loads configuration, opens the store and wires every
// registry. Registry load errors are reported but never fatal: a bad
// descriptor file must not take the whole engine down.
func NewContext(cmd *cobra.Command) (*Context, error) {
	// A .env in the working directory supplies provider API keys during
	// development. Missing is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	var logOpts []logger.Option
	if cfg.Debug {
		logOpts = append(logOpts, logger.WithDebug())
	}
	logOpts = append(logOpts, logger.WithFormat(cfg.LogFormat))
	ctx := logger.WithLogger(cmd.Context(), logger.NewLogger(logOpts...))

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	manager := llm.NewConfigManager(ctx, cfg.LLMConfigPath)
	facade := llm.NewFacade(manager)

	tools := tool.NewRegistry(cfg.ToolsDir, cfg.MCPDir, tool.Deps{
		LLM:          facade,
		TemplatesDir: cfg.TemplatesDir,
		DebugDir:     cfg.DebugDir,
	})
	reportLoadErrors(ctx, "tool", tools.Load(ctx))

	agents := agent.NewRegistry(cfg.AgentsDir, facade, st)
	reportLoadErrors(ctx, "agent", agents.Load(ctx))

	dags := dag.NewRegistry(cfg.DAGsDir)
	reportLoadErrors(ctx, "dag", dags.Load(ctx))

	orc := orchestrator.New(ctx, st, dags, tools, agents, cfg.DebugDir)

	return &Context{
		Context: ctx,
		Config:  cfg,
		Store:   st,
		DAGs:    dags,
		Tools:   tools,
		Agents:  agents,
		LLM:     manager,
		Facade:  facade,
		Orc:     orc,
	}, nil
}

// Close releases everything NewContext acquired.
func (c *Context) Close() {
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Orc.Shutdown(sctx); err != nil {
		logger.Warn(c, "Orchestrator shutdown timed out", tag.Error(err))
	}
	c.LLM.Stop()
	if err := c.Store.Close(); err != nil {
		logger.Warn(c, "Failed to close store", tag.Error(err))
	}
}

func reportLoadErrors(ctx context.Context, kind string, errs []error) {
	for _, err := range errs {
		logger.Warn(ctx, "Skipped invalid "+kind+" descriptor", tag.Error(err))
	}
}

// run wraps a command body with context construction and teardown.
func run(fn func(*Context, *cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd)
		if err != nil {
			return err
		}
		defer ctx.Close()
		return fn(ctx, cmd, args)
	}
}
