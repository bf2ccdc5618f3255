package main

import (
	"github.com/spf13/cobra"

	"airlift/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <show-id> <path>",
		Short: "Manually enqueue and process a file for a show",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := ctx.newEngine(store, cfg)
			item, err := eng.AddFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			switch item.Status {
			case queue.StatusCompleted:
				cmd.Printf("filed as %s\n", item.OutputPath)
			case queue.StatusFailed:
				cmd.Printf("recorded failure for item %d: %s\n", item.ID, item.ErrorMessage)
			default:
				cmd.Printf("item %d is %s\n", item.ID, item.Status)
			}
			return nil
		},
	}
}
