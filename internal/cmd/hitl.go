package cmd

import (
	"github.com/spf13/cobra"
)

// HITL groups the human approval gate commands.
func HITL() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hitl",
		Short: "Inspect and resolve human approval gates",
	}
	cmd.AddCommand(hitlList(), hitlApprove(), hitlReject())
	return cmd
}

func hitlList() *cobra.Command {
	return &cobra.Command{
		Use:   "list [workflow-id]",
		Short: "List pending approval requests",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			workflowID := ""
			if len(args) > 0 {
				workflowID = args[0]
			}
			reqs, err := ctx.Orc.PendingHITL(ctx, workflowID)
			if err != nil {
				return err
			}
			for _, req := range reqs {
				cmd.Printf("%s  workflow=%s  node=%s  %q  created=%s\n",
					req.RequestID, req.WorkflowID, req.NodeID, req.Message, req.CreatedAt)
			}
			return nil
		}),
	}
}

func hitlApprove() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve [flags] <workflow-id> <request-id>",
		Short: "Approve a pending gate and resume the workflow",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			response, _ := cmd.Flags().GetString("response")
			if err := ctx.Orc.ApproveHITL(ctx, args[0], args[1], user, response); err != nil {
				return err
			}
			cmd.Printf("request %s approved\n", args[1])
			if wait, _ := cmd.Flags().GetBool("wait"); wait {
				return followWorkflow(ctx, cmd, args[0])
			}
			return nil
		}),
	}
	cmd.Flags().String("user", "", "user id recorded as the responder")
	cmd.Flags().String("response", "", "free-form response passed to downstream nodes")
	cmd.Flags().Bool("wait", true, "follow the resumed execution")
	return cmd
}

func hitlReject() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject [flags] <workflow-id> <request-id>",
		Short: "Reject a pending gate and fail the workflow",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			reason, _ := cmd.Flags().GetString("reason")
			if err := ctx.Orc.RejectHITL(ctx, args[0], args[1], user, reason); err != nil {
				return err
			}
			cmd.Printf("request %s rejected\n", args[1])
			return nil
		}),
	}
	cmd.Flags().String("user", "", "user id recorded as the responder")
	cmd.Flags().String("reason", "", "rejection reason recorded on the workflow")
	return cmd
}

// CancelCmd cancels a running workflow.
func CancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Cancel a running workflow",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx *Context, cmd *cobra.Command, args []string) error {
			if err := ctx.Orc.Cancel(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("workflow %s cancelled\n", args[0])
			return nil
		}),
	}
}
