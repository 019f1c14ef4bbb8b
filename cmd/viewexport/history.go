package main

import (
	"errors"

	"github.com/spf13/cobra"

	"mercator-hq/viewexport/pkg/cli"
	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/history"
)

var historyFlags struct {
	limit  int
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent export runs",
	Long: `Show the most recent export runs from the history database, newest first.

Both successful and failed runs are listed with their record and page counts,
the number of columns, the duration and the output file or error.

Examples:
  # Show the last 20 runs
  viewexport history

  # Show the last 5 runs as JSON
  viewexport history --limit 5 --format json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", history.DefaultLimit, "number of runs to show")
	historyCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, csv")
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return cli.NewUsageError(err)
	}
	if historyFlags.limit <= 0 {
		return cli.NewUsageError(errors.New("--limit must be greater than 0"))
	}
	if !cfg.History.Enabled {
		return &export.ConfigurationError{Field: "history.enabled", Message: "run history is disabled"}
	}

	ctx := cmd.Context()
	store, err := history.Open(ctx, cfg.History, logger.Slog())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, historyFlags.limit)
	if err != nil {
		return err
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cli.NewRunList(runs))
}
