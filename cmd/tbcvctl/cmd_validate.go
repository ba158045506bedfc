package main

import (
	"github.com/spf13/cobra"
)

var validateFamily string
var validateLimit int

func init() {
	validateContentCmd := &cobra.Command{
		Use:   "validate-content [content]",
		Short: "Validate a Markdown string through the tiered validator pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "validate_content", map[string]any{
				"content": args[0], "family": validateFamily,
			})
		},
	}
	validateContentCmd.Flags().StringVar(&validateFamily, "family", "general", "content family (§3)")

	validateFileCmd := &cobra.Command{
		Use:   "validate-file [path]",
		Short: "Validate a Markdown file on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "validate_file", map[string]any{
				"file_path": args[0], "family": validateFamily,
			})
		},
	}
	validateFileCmd.Flags().StringVar(&validateFamily, "family", "general", "content family (§3)")

	validateFolderCmd := &cobra.Command{
		Use:   "validate-folder [path]",
		Short: "Validate every Markdown file under a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "validate_folder", map[string]any{
				"folder_path": args[0], "family": validateFamily,
			})
		},
	}
	validateFolderCmd.Flags().StringVar(&validateFamily, "family", "general", "content family (§3)")

	validationsCmd := &cobra.Command{
		Use:   "validations",
		Short: "Inspect and transition stored validations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored validations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "list_validations", map[string]any{"limit": validateLimit})
		},
	}
	listCmd.Flags().IntVar(&validateLimit, "limit", 20, "max results (0 = unlimited)")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a single validation by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_validation", map[string]any{"id": args[0]})
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a pending validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "approve", map[string]any{"id": args[0]})
		},
	}

	rejectCmd := &cobra.Command{
		Use:   "reject [id]",
		Short: "Reject a pending validation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "reject", map[string]any{"id": args[0]})
		},
	}

	validationsCmd.AddCommand(listCmd, getCmd, approveCmd, rejectCmd)
	rootCmd.AddCommand(validateContentCmd, validateFileCmd, validateFolderCmd, validationsCmd)
}
