package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pspman/internal/database"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Load(cfg.DatabasePath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if db.Len() == 0 {
				fmt.Fprintf(out, "No projects tracked in %s\n", cfg.Paths.CloneDir)
				return nil
			}
			rows := make([][]string, 0, db.Len())
			for _, rec := range db.Records() {
				url := rec.URL
				if url == "" {
					url = "(source URL unavailable)"
				}
				backend := rec.Tag.Backend.String()
				if rec.PullOnly {
					backend += " (pull only)"
				}
				rows = append(rows, []string{rec.Name, url, backend, rec.Tag.Describe(), formatTimestamp(rec.LastUpdated)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "URL", "Backend", "Status", "Last Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}
