package main

import (
	"github.com/spf13/cobra"
)

func init() {
	recommendationsCmd := &cobra.Command{
		Use:   "recommendations",
		Short: "Generate, inspect, and review enhancement recommendations",
	}

	generateCmd := &cobra.Command{
		Use:   "generate [validation_id]",
		Short: "Generate recommendations for a validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "generate_recommendations", map[string]any{"validation_id": args[0]})
		},
	}

	rebuildCmd := &cobra.Command{
		Use:   "rebuild [validation_id]",
		Short: "Delete and regenerate recommendations for a validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "rebuild_recommendations", map[string]any{"validation_id": args[0]})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [validation_id]",
		Short: "List recommendations for a validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_recommendations", map[string]any{"validation_id": args[0]})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a single recommendation by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_recommendation", map[string]any{"id": args[0]})
		},
	}

	var reviewDecision string
	reviewCmd := &cobra.Command{
		Use:   "review [id]",
		Short: "Approve or reject a single recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reviewDecision != "approve" && reviewDecision != "reject" {
				return newUsageError("--decision must be \"approve\" or \"reject\"")
			}
			return runRPC(cmd, "review_recommendation", map[string]any{"id": args[0], "decision": reviewDecision})
		},
	}
	reviewCmd.Flags().StringVar(&reviewDecision, "decision", "", "approve|reject")
	reviewCmd.MarkFlagRequired("decision")

	var applyIDs []string
	applyCmd := &cobra.Command{
		Use:   "apply [validation_id]",
		Short: "Apply the given approved recommendations to the underlying file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(applyIDs) == 0 {
				return newUsageError("--ids is required (comma-separated recommendation ids)")
			}
			ids := make([]any, len(applyIDs))
			for i, id := range applyIDs {
				ids[i] = id
			}
			return runRPC(cmd, "apply_recommendations", map[string]any{
				"validation_id": args[0], "recommendation_ids": ids,
			})
		},
	}
	applyCmd.Flags().StringSliceVar(&applyIDs, "ids", nil, "recommendation ids to apply")
	applyCmd.MarkFlagRequired("ids")

	recommendationsCmd.AddCommand(generateCmd, rebuildCmd, listCmd, getCmd, reviewCmd, applyCmd)
	rootCmd.AddCommand(recommendationsCmd)
}
