package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	restoreLive   bool
	restoreReason string
)

var restoreCmd = &cobra.Command{
	Use:   "restore <rollback-point-id>",
	Short: "Restore data sources to a rollback point",
	Long: `Restore replays a rollback point onto the live data sources.

Without --live this is a dry run: the would-be outcome is computed and
reported, but no snapshot pointer moves. A live restore is destructive
and irreversible; it requires --reason for the audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreLive && restoreReason == "" {
			return fmt.Errorf("--reason is required for a live restore")
		}

		body := map[string]any{
			"rollbackPointId": args[0],
			"dryRun":          !restoreLive,
			"reason":          restoreReason,
		}

		var op rollbackOperation
		if err := newClient().postJSON("/api/v1/rollback/restore", body, &op); err != nil {
			return err
		}

		if outputFmt != "table" {
			return printOutput(op)
		}

		mode := "dry-run"
		if restoreLive {
			mode = "live"
		}
		fmt.Printf("Restore %s (%s): %s\n", op.ID, mode, op.Status)
		fmt.Printf("  restored: %d sources, %d records\n",
			len(op.Restored.DataSources), op.Restored.RecordsRestored)
		for _, e := range op.Errors {
			fmt.Printf("  error: %s: %s\n", e.DataSourceID, e.Error)
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreLive, "live", false, "Perform a live restore instead of a dry run")
	restoreCmd.Flags().StringVar(&restoreReason, "reason", "", "Audit reason (required with --live)")
}
