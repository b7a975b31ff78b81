package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/dag"
)

// DAGs groups the DAG registry commands.
func DAGs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dags",
		Short: "Inspect and manage registered DAG definitions",
	}
	cmd.AddCommand(dagsList(), dagsValidate(), dagsAdd(), dagsDelete())
	return cmd
}

func dagsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered DAGs",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx *Context, cmd *cobra.Command, _ []string) error {
			for _, info := range ctx.DAGs.List() {
				cmd.Printf("%-24s nodes=%-3d %s\n", info.DagID, info.NodeCount, info.Name)
			}
			return nil
		}),
	}
}

func dagsValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a definition file without registering it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			def, err := dag.Parse(data, args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%s is valid: %d nodes\n", def.DagID, len(def.Nodes))
			return nil
		}),
	}
}

func dagsAdd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Validate a definition file and register it",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			def, err := dag.Parse(data, args[0])
			if err != nil {
				return err
			}
			if err := ctx.DAGs.Add(ctx, def); err != nil {
				return err
			}
			cmd.Printf("dag %s registered\n", def.DagID)
			return nil
		}),
	}
}

func dagsDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dag-id>",
		Short: "Remove a registered DAG",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			if err := ctx.DAGs.Delete(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("dag %s deleted\n", args[0])
			return nil
		}),
	}
}
