package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"darkroom/internal/deps"
)

func newDepsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			missing := false
			for _, status := range statuses {
				state := "ok"
				detail := status.Description
				if !status.Available {
					detail = status.Detail
					if status.Optional {
						state = "missing (optional)"
					} else {
						state = "missing"
						missing = true
					}
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					state,
					detail,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{
				{header: "Tool"},
				{header: "Command"},
				{header: "Status"},
				{header: "Detail"},
			}, rows))

			if missing {
				return fmt.Errorf("required external tools are missing")
			}
			return nil
		},
	}
}
