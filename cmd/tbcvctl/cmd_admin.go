package main

import (
	"github.com/spf13/cobra"
)

func init() {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operational commands: cache, maintenance mode, checkpoints",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report store/cache/truth-index reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_system_status", nil)
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the L1/L2 cache",
	}
	cacheStatsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Report cache hit/miss counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_cache_stats", nil)
		},
	}
	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe the L1 cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "clear_cache", nil)
		},
	}
	cacheCleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep TTL-expired L1 entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "cleanup_cache", nil)
		},
	}
	cacheRebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Invalidate rule- and truth-tagged cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "rebuild_cache", nil)
		},
	}
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCleanupCmd, cacheRebuildCmd)

	maintenanceCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Toggle maintenance mode (blocks new workflow creation)",
	}
	maintenanceEnableCmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable maintenance mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "enable_maintenance_mode", nil)
		},
	}
	maintenanceDisableCmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable maintenance mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "disable_maintenance_mode", nil)
		},
	}
	maintenanceCmd.AddCommand(maintenanceEnableCmd, maintenanceDisableCmd)

	runGCCmd := &cobra.Command{
		Use:   "gc",
		Short: "Force a garbage collection cycle and report heap size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "run_gc", nil)
		},
	}

	var reloadName string
	reloadCmd := &cobra.Command{
		Use:   "reload-agent",
		Short: "Acknowledge a reload request (diagnostic no-op, §9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "reload_agent", map[string]any{"name": reloadName})
		},
	}
	reloadCmd.Flags().StringVar(&reloadName, "name", "", "component name")

	var checkpointWorkflowID, checkpointName string
	var checkpointStep int
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Create an out-of-band checkpoint for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkpointWorkflowID == "" || checkpointName == "" {
				return newUsageError("--workflow and --name are required")
			}
			return runRPC(cmd, "create_checkpoint", map[string]any{
				"workflow_id": checkpointWorkflowID, "name": checkpointName, "step_number": checkpointStep,
			})
		},
	}
	checkpointCmd.Flags().StringVar(&checkpointWorkflowID, "workflow", "", "workflow id")
	checkpointCmd.Flags().StringVar(&checkpointName, "name", "", "checkpoint name")
	checkpointCmd.Flags().IntVar(&checkpointStep, "step", 0, "step number")

	adminCmd.AddCommand(statusCmd, cacheCmd, maintenanceCmd, runGCCmd, reloadCmd, checkpointCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Report aggregate validation/workflow counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_stats", nil)
		},
	}

	var auditMethod string
	auditLogCmd := &cobra.Command{
		Use:   "audit-log",
		Short: "List recorded RPC audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_audit_log", map[string]any{"method": auditMethod})
		},
	}
	auditLogCmd.Flags().StringVar(&auditMethod, "method", "", "filter by RPC method name")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Report store reachability and truth-index/cache stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRPC(cmd, "get_health_report", nil)
		},
	}

	rootCmd.AddCommand(adminCmd, statsCmd, auditLogCmd, healthCmd)
}
