package main

import (
	"github.com/spf13/cobra"
)

func init() {
	var override bool

	enhanceCmd := &cobra.Command{
		Use:   "enhance [validation_id]",
		Short: "Apply approved recommendations to the underlying file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "enhance", map[string]any{"validation_id": args[0], "override": override})
		},
	}
	enhanceCmd.Flags().BoolVar(&override, "override", false, "bypass the safety gate (§4.5)")

	previewCmd := &cobra.Command{
		Use:   "enhance-preview [validation_id]",
		Short: "Preview an enhancement without writing to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "enhance_preview", map[string]any{"validation_id": args[0]})
		},
	}

	autoApplyCmd := &cobra.Command{
		Use:   "enhance-auto-apply [preview_id]",
		Short: "Commit a previously generated enhancement preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "enhance_auto_apply", map[string]any{"preview_id": args[0], "override": override})
		},
	}
	autoApplyCmd.Flags().BoolVar(&override, "override", false, "bypass the safety gate (§4.5)")

	var confirmRollback bool
	rollbackCmd := &cobra.Command{
		Use:   "rollback [record_id]",
		Short: "Restore a file's content from an enhancement's rollback point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmRollback {
				return newUsageError("rollback requires --confirm")
			}
			return runRPC(cmd, "rollback_enhancement", map[string]any{"enhancement_id": args[0]})
		},
	}
	rollbackCmd.Flags().BoolVar(&confirmRollback, "confirm", false, "confirm the rollback")

	comparisonCmd := &cobra.Command{
		Use:   "enhance-diff [record_id]",
		Short: "Show the original-vs-current diff for an enhancement record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_enhancement_comparison", map[string]any{"enhancement_id": args[0]})
		},
	}

	rootCmd.AddCommand(enhanceCmd, previewCmd, autoApplyCmd, rollbackCmd, comparisonCmd)
}
