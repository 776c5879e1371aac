package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/subforge/srt-translator/internal/history"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past translation runs",
		Long: `Without arguments lists recent runs. With a run id shows the
per-file outcome of that run. Requires HISTORY_DB to be set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.System.HistoryDB == "" {
				return fmt.Errorf("HISTORY_DB is not configured")
			}

			store, err := history.NewStore(cfg.System.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				runID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id: %s", args[0])
				}
				return printRunFiles(cmd, store, runID)
			}
			return printRuns(cmd, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")

	return cmd
}

func printRuns(cmd *cobra.Command, store *history.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATE\tFILES\tLANG\tMODEL")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%s\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.State,
			run.FilesDone,
			run.FilesTotal,
			run.TargetLang,
			run.Model,
		)
	}
	return w.Flush()
}

func printRunFiles(cmd *cobra.Command, store *history.Store, runID int64) error {
	files, err := store.ListFiles(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files recorded for this run.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tFILE\tDETAIL")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Status, f.Path, f.Detail)
	}
	return w.Flush()
}
