package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/build"
	"github.com/orcabase/orca/internal/cmd"

	_ "github.com/orcabase/orca/internal/llm/allproviders" // Register LLM providers
	_ "github.com/orcabase/orca/internal/tool/builtin"     // Register built-in tools
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "Orca is an LLM-native workflow execution engine",
	Long: `Orca is an LLM-native workflow execution engine.

It executes directed acyclic graphs of tool, agent, decision, and human
approval nodes, threading node results into downstream inputs and parking
workflows that wait on human review.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Start())
	rootCmd.AddCommand(cmd.Status())
	rootCmd.AddCommand(cmd.List())
	rootCmd.AddCommand(cmd.CancelCmd())
	rootCmd.AddCommand(cmd.HITL())
	rootCmd.AddCommand(cmd.DAGs())
	rootCmd.AddCommand(cmd.Tools())
	rootCmd.AddCommand(cmd.Models())
	rootCmd.AddCommand(cmd.Docgen())
	rootCmd.AddCommand(cmd.Version())

	build.Version = version
}

var version = "0.0.0"
