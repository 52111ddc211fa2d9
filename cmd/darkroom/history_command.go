package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"darkroom/internal/journal"
)

func newHistoryCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := journal.Open(cfg)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format(time.DateTime),
					run.Project,
					run.Directory,
					strconv.Itoa(run.FilesTotal),
					strconv.Itoa(run.Renamed),
					strconv.Itoa(run.Converted),
					strconv.Itoa(run.Failed),
					run.Status,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "Started"},
				{header: "Project"},
				{header: "Directory"},
				{header: "Files", right: true},
				{header: "Renamed", right: true},
				{header: "Converted", right: true},
				{header: "Failed", right: true},
				{header: "Status"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}
