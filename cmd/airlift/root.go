package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	cmd := &cobra.Command{
		Use:           "airlift",
		Short:         "Manage the Airlift file intake queue",
		Long:          "Airlift watches show directories for incoming audio, queues detected files, and relocates them into each show's library layout.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")

	ctx := newCommandContext(&configFlag)

	cmd.AddCommand(
		newQueueCommand(ctx),
		newShowsCommand(ctx),
		newStatusCommand(ctx),
		newProcessCommand(ctx),
		newAddCommand(ctx),
		newConfigCommand(ctx),
		newLogsCommand(ctx),
		newTestNotifyCommand(ctx),
	)
	return cmd
}
