package main

import (
	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Process all pending queue items now",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := ctx.newEngine(store, cfg)
			completed, failures, err := eng.ProcessPending(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("processed %d items (%d failed)\n", completed+len(failures), len(failures))
			for _, item := range failures {
				cmd.Printf("  %d %s: %s\n", item.ID, item.Filename, item.ErrorMessage)
			}
			return nil
		},
	}
}
