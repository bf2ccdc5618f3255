package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newShowsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shows",
		Short: "List configured show profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := ctx.showSource()
			if err != nil {
				return err
			}

			profiles, err := source.GetAllShows()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				cmd.Println("no shows configured")
				return nil
			}

			rows := make([][]string, 0, len(profiles))
			for _, show := range profiles {
				globs := show.WatchGlobs()
				rows = append(rows, []string{
					show.ID,
					show.Name,
					yesNo(show.Enabled),
					yesNo(show.AutoProcess),
					yesNo(show.Watchable()),
					strconv.Itoa(len(show.Patterns)),
					strings.Join(globs, ", "),
				})
			}
			cmd.Println(renderTable(
				[]string{"ID", "Name", "Enabled", "Auto", "Watchable", "Patterns", "Watch Globs"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	return cmd
}
