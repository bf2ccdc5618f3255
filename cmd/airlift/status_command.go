package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health and configuration paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Pending", strconv.Itoa(health.Pending)},
				{"Processing", strconv.Itoa(health.Processing)},
				{"Completed", strconv.Itoa(health.Completed)},
				{"Failed", strconv.Itoa(health.Failed)},
				{"Total", strconv.Itoa(health.Total)},
			}
			cmd.Println(renderTable(
				[]string{"Queue", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			cmd.Printf("\nshows file:  %s\n", cfg.Paths.ShowsFile)
			cmd.Printf("queue db:    %s\n", store.Path())
			cmd.Printf("watch dir:   %s\n", cfg.Paths.DefaultWatchDir)
			cmd.Printf("output dir:  %s\n", cfg.Paths.DefaultOutputDir)
			return nil
		},
	}
}
