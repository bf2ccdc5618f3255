package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"airlift/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigShowCommand(ctx),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if strings.TrimSpace(path) == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(expanded); err == nil {
					return fmt.Errorf("config file already exists at %s (use --force to overwrite)", expanded)
				}
			}

			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			cmd.Printf("wrote sample config to %s\n", expanded)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"paths.shows_file", cfg.Paths.ShowsFile},
				{"paths.default_watch_dir", cfg.Paths.DefaultWatchDir},
				{"paths.default_output_dir", cfg.Paths.DefaultOutputDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"intake.allowed_extensions", strings.Join(cfg.Intake.AllowedExtensions, ", ")},
				{"intake.debounce_seconds", fmt.Sprintf("%d", cfg.Intake.DebounceSeconds)},
				{"intake.stability_poll_ms", fmt.Sprintf("%d", cfg.Intake.StabilityPollMs)},
				{"notifications.ntfy_topic", cfg.Notifications.NtfyTopic},
				{"notifications.queued", yesNo(cfg.Notifications.Queued)},
				{"notifications.completed", yesNo(cfg.Notifications.Completed)},
				{"notifications.errors", yesNo(cfg.Notifications.Errors)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			cmd.Println(renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}
