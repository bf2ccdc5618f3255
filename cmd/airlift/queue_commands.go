package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"airlift/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the intake queue",
	}
	cmd.AddCommand(
		newQueueListCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueClearCommand(ctx),
	)
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
				for _, raw := range strings.Split(trimmed, ",") {
					status, ok := queue.ParseStatus(raw)
					if !ok {
						return fmt.Errorf("unknown status %q (known: pending, processing, completed, failed)", raw)
					}
					statuses = append(statuses, status)
				}
			}

			items, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				cmd.Println("queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					item.ShowID,
					item.Filename,
					string(item.Status),
					formatBytes(item.BytesProcessed),
					formatItemDetail(item),
				})
			}
			cmd.Println(renderTable(
				[]string{"ID", "Show", "Filename", "Status", "Bytes", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "comma-separated status filter")
	return cmd
}

func formatItemDetail(item *queue.Item) string {
	switch item.Status {
	case queue.StatusCompleted:
		return item.OutputPath
	case queue.StatusFailed:
		return item.ErrorMessage
	default:
		return ""
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Re-run a failed queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid queue item id %q", args[0])
			}

			store, cfg, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			eng := ctx.newEngine(store, cfg)
			item, err := eng.RetryFile(cmd.Context(), id)
			if err != nil {
				return err
			}
			switch item.Status {
			case queue.StatusCompleted:
				cmd.Printf("item %d completed: %s\n", item.ID, item.OutputPath)
			case queue.StatusFailed:
				cmd.Printf("item %d failed again: %s\n", item.ID, item.ErrorMessage)
			default:
				cmd.Printf("item %d is now %s\n", item.ID, item.Status)
			}
			return nil
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid queue item id %q", args[0])
			}

			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no queue item %d", id)
			}
			cmd.Printf("removed item %d\n", id)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly, failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}

			store, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var (
				removed int64
				label   string
			)
			switch {
			case completedOnly:
				removed, err = store.ClearCompleted(cmd.Context())
				label = "completed "
			case failedOnly:
				removed, err = store.ClearFailed(cmd.Context())
				label = "failed "
			default:
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			cmd.Printf("removed %d %sitems\n", removed, label)
			return nil
		},
	}
	cmd.Flags().BoolVar(&completedOnly, "completed", false, "clear only completed items")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "clear only failed items")
	return cmd
}
