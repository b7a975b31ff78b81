package cmd

import (
	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/core"
)

// Status shows a workflow with its node states and event stream.
func Status() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [flags] <workflow-id>",
		Short: "Show the current state of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  run(runStatus),
	}
	cmd.Flags().Bool("events", false, "include the workflow event stream")
	return cmd
}

func runStatus(ctx *Context, cmd *cobra.Command, args []string) error {
	printWorkflow(ctx, cmd, args[0])

	if withEvents, _ := cmd.Flags().GetBool("events"); withEvents {
		events, err := ctx.Store.GetEvents(ctx, args[0])
		if err != nil {
			return err
		}
		cmd.Println("events:")
		for _, ev := range events {
			cmd.Printf("  %6d  %-20s %s  %s\n", ev.ID, ev.EventType, ev.CreatedAt, ev.EventData)
		}
	}
	return nil
}

func printWorkflow(ctx *Context, cmd *cobra.Command, workflowID string) {
	state, err := ctx.Orc.GetWorkflowStatus(ctx, workflowID)
	if err != nil {
		cmd.PrintErrf("failed to read workflow: %v\n", err)
		return
	}

	wf := state.Workflow
	cmd.Printf("workflow %s  dag=%s  status=%s\n", wf.WorkflowID, wf.DagID, wf.Status)
	if wf.Error != "" {
		cmd.Printf("  error: %s\n", wf.Error)
	}
	for _, n := range state.Nodes {
		line := "  " + statusGlyph(n.Status) + " " + n.NodeID + " (" + string(n.NodeType) + ")"
		if n.Error != "" {
			line += "  error: " + n.Error
		}
		cmd.Println(line)
	}
}

func statusGlyph(status string) string {
	switch status {
	case string(core.NodeCompleted):
		return "✓"
	case string(core.NodeFailed):
		return "✗"
	case string(core.NodeRunning), core.WaitingHITL:
		return "…"
	case string(core.NodeSkipped):
		return "-"
	default:
		return "·"
	}
}

// List shows recent workflows, optionally filtered by status.
func List() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [flags]",
		Short: "List recent workflows",
		Args:  cobra.NoArgs,
		RunE:  run(runList),
	}
	cmd.Flags().String("status", "", "filter by status (running, completed, failed)")
	cmd.Flags().Int("limit", 20, "maximum number of workflows to show")
	return cmd
}

func runList(ctx *Context, cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	wfs, err := ctx.Store.ListWorkflows(ctx, core.WorkflowStatus(status), limit)
	if err != nil {
		return err
	}
	for _, wf := range wfs {
		cmd.Printf("%s  %-10s dag=%s  created=%s\n",
			wf.WorkflowID, wf.Status, wf.DagID, wf.CreatedAt)
	}
	return nil
}
