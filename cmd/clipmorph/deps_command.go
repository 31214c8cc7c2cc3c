package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipmorph/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external binary availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := deps.CheckBinaries(deps.Defaults(cfg))
			rows := make([][]string, 0, len(results))
			missing := 0
			for _, status := range results {
				state := "ok"
				detail := status.Description
				if !status.Available {
					state = "missing"
					missing++
					if status.Detail != "" {
						detail = status.Detail
					}
				}
				rows = append(rows, []string{
					status.Name,
					status.Command,
					colorizeAvailability(state, colorize),
					detail,
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if missing > 0 {
				return fmt.Errorf("%d required dependencies missing", missing)
			}
			return nil
		},
	}
}

func colorizeAvailability(state string, colorize bool) string {
	if !colorize {
		return state
	}
	if state == "ok" {
		return ansiGreen + state + ansiReset
	}
	return ansiRed + state + ansiReset
}
