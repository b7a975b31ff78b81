package cmd

import (
	"github.com/spf13/cobra"
)

// Tools groups the tool registry commands.
func Tools() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and manage the tool registry",
	}
	cmd.AddCommand(toolsList(), toolsEnable(), toolsDisable(), toolsServers())
	return cmd
}

func toolsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools, local and remote",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx *Context, cmd *cobra.Command, _ []string) error {
			for _, d := range ctx.Tools.List() {
				state := "enabled"
				if !d.Enabled {
					state = "disabled"
				}
				origin := d.Module
				if d.Kind == "remote" {
					origin = "server " + d.Server
				}
				cmd.Printf("%-28s %-8s %-8s %s\n", d.Name, d.Kind, state, origin)
			}
			return nil
		}),
	}
}

func toolsEnable() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a tool and persist the flag",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			return ctx.Tools.SetEnabled(ctx, args[0], true)
		}),
	}
}

func toolsDisable() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a tool and persist the flag",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			return ctx.Tools.SetEnabled(ctx, args[0], false)
		}),
	}
}

func toolsServers() *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "Probe the health of remote tool servers",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx *Context, cmd *cobra.Command, _ []string) error {
			for _, s := range ctx.Tools.ServerStatuses(ctx) {
				state := "down"
				if s.Healthy {
					state = "healthy"
				}
				cmd.Printf("%-20s %-8s %4dms  %s\n", s.Name, state, s.LatencyMS, s.URL)
			}
			return nil
		}),
	}
}
