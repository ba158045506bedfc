package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "Create and control batch validation/enhancement workflows (§4.6)",
	}

	var paramsJSON string
	createCmd := &cobra.Command{
		Use:   "create [type]",
		Short: "Create a workflow (type: batch_validation|batch_enhancement)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters := map[string]any{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &parameters); err != nil {
					return newUsageError("--params must be valid JSON: %v", err)
				}
			}
			return runRPC(cmd, "create_workflow", map[string]any{"type": args[0], "parameters": parameters})
		},
	}
	createCmd.Flags().StringVar(&paramsJSON, "params", "", "JSON object of workflow parameters")

	var listState string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "list_workflows", map[string]any{"state": listState})
		},
	}
	listCmd.Flags().StringVar(&listState, "state", "", "filter by workflow state")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a workflow by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_workflow", map[string]any{"id": args[0]})
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report [id]",
		Short: "Fetch a workflow with its checkpoint history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_workflow_report", map[string]any{"id": args[0]})
		},
	}

	summaryCmd := &cobra.Command{
		Use:   "summary [id]",
		Short: "Fetch a workflow's progress summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_workflow_summary", map[string]any{"id": args[0]})
		},
	}

	controlCmd := &cobra.Command{
		Use:   "control [id] [pause|resume|cancel]",
		Short: "Send a control action to a running workflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "control_workflow", map[string]any{"id": args[0], "action": args[1]})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a workflow in a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "delete_workflow", map[string]any{"id": args[0]})
		},
	}

	workflowsCmd.AddCommand(createCmd, listCmd, getCmd, reportCmd, summaryCmd, controlCmd, deleteCmd)
	rootCmd.AddCommand(workflowsCmd)
}
