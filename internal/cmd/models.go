package cmd

import (
	"github.com/spf13/cobra"
)

// Models groups the LLM model catalog commands.
func Models() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect the configured LLM providers and models",
	}
	cmd.AddCommand(modelsList(), modelsRecommend())
	return cmd
}

func modelsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enabled models across providers",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx *Context, cmd *cobra.Command, _ []string) error {
			defProvider, defModel := ctx.LLM.DefaultProviderModel()
			for _, ref := range ctx.Facade.ListAvailableModels() {
				marker := " "
				if ref.Provider == defProvider && ref.Model == defModel {
					marker = "*"
				}
				cmd.Printf("%s %-12s %-40s %s\n",
					marker, ref.Provider, ref.Model, ref.Info.Description)
			}
			return nil
		}),
	}
}

func modelsRecommend() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <task-tag>",
		Short: "Pick the best enabled model for a task tag",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			provider, model := ctx.Facade.GetRecommendedModel(args[0])
			cmd.Printf("%s/%s\n", provider, model)
			return nil
		}),
	}
}
