// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deep-research/internal/history"
	"github.com/pdiddy/deep-research/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past pipeline runs",
	Long: `History lists past research runs recorded in the local run database:
topic, outcome, timing, and where the report landed.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("history-dir")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := history.NewStore(types.HistoryConfig{Dir: dir})
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tTOPIC\tREPORT")
	for _, e := range entries {
		status := string(e.Status)
		if e.Status == types.StatusFailed && e.FailedAtStage != "" {
			status = fmt.Sprintf("failed (%s)", e.FailedAtStage)
		}
		report := e.ReportPath
		if report == "" {
			report = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.StartedAt.Format("2006-01-02 15:04"), status, e.Topic, report)
	}
	return w.Flush()
}

func init() {
	historyCmd.Flags().String("history-dir", "history", "directory for the run history database")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")

	rootCmd.AddCommand(historyCmd)
}
