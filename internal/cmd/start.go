package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/core"
	"github.com/orcabase/orca/internal/orchestrator"
)

// Start launches a registered DAG as a new workflow.
func Start() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [flags] <dag-id>",
		Short: "Launch a workflow from a registered DAG",
		Long: `Launch a workflow from a registered DAG definition.

The workflow id is printed immediately. With --wait (the default) the
command follows the execution until it completes, fails, or parks on a
human approval gate.

Example:
  orca start my_pipeline --param target=prod --param dry_run=false
`,
		Args: cobra.ExactArgs(1),
		RunE: run(runStart),
	}
	cmd.Flags().StringArray("param", nil, "workflow parameter as key=value, repeatable")
	cmd.Flags().String("user", "", "user id recorded as the workflow creator")
	cmd.Flags().String("session", "", "session id to associate with the workflow")
	cmd.Flags().Bool("wait", true, "follow the execution until it finishes or parks")
	return cmd
}

func runStart(ctx *Context, cmd *cobra.Command, args []string) error {
	if _, err := ctx.Orc.Recover(ctx); err != nil {
		return err
	}

	rawParams, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}
	user, _ := cmd.Flags().GetString("user")
	session, _ := cmd.Flags().GetString("session")

	workflowID, err := ctx.Orc.StartWorkflow(ctx, orchestrator.StartRequest{
		DagID:     args[0],
		SessionID: session,
		CreatedBy: user,
		Params:    params,
	})
	if err != nil {
		return err
	}
	cmd.Printf("workflow %s started\n", workflowID)

	if wait, _ := cmd.Flags().GetBool("wait"); wait {
		return followWorkflow(ctx, cmd, workflowID)
	}
	return nil
}

func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", kv)
		}
		params[key] = value
	}
	return params, nil
}

// followWorkflow polls until the workflow finishes or parks on a gate.
func followWorkflow(ctx *Context, cmd *cobra.Command, workflowID string) error {
	for {
		wf, err := ctx.Store.GetWorkflow(ctx, workflowID)
		if err != nil {
			return err
		}
		if wf.Status.IsTerminal() {
			printWorkflow(ctx, cmd, workflowID)
			if wf.Status == core.WorkflowFailed {
				return fmt.Errorf("workflow failed: %s", wf.Error)
			}
			return nil
		}

		pending, err := ctx.Orc.PendingHITL(ctx, workflowID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			printWorkflow(ctx, cmd, workflowID)
			cmd.Println("workflow is waiting for approval:")
			for _, req := range pending {
				cmd.Printf("  request %s  node %s  %q\n", req.RequestID, req.NodeID, req.Message)
			}
			cmd.Printf("resume with: orca hitl approve %s <request-id>\n", workflowID)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
