package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyPointID string
	historyLimit   int
	historyActive  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List restore operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/rollback/history?limit=" + strconv.Itoa(historyLimit)
		if historyPointID != "" {
			path += "&rollbackPointId=" + historyPointID
		}
		if historyActive {
			path = "/api/v1/rollback/operations/active"
		}

		var list operationList
		if err := newClient().getJSON(path, &list); err != nil {
			return err
		}

		if outputFmt != "table" {
			return printOutput(list)
		}

		rows := make([][]string, 0, len(list.Operations))
		for _, op := range list.Operations {
			mode := "live"
			if op.DryRun {
				mode = "dry-run"
			}
			rows = append(rows, []string{
				op.ID,
				op.RollbackPointID,
				mode,
				op.Status,
				strconv.Itoa(len(op.Restored.DataSources)),
				strconv.Itoa(len(op.Errors)),
				op.StartedAt.Format(time.RFC3339),
			})
		}
		printTable([]string{"id", "point", "mode", "status", "restored", "errors", "started"}, rows)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyPointID, "point", "", "Filter by rollback point ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Max operations to list")
	historyCmd.Flags().BoolVar(&historyActive, "active", false, "List only non-terminal operations")
}
