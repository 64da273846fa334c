package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pspman/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var projectName string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past runs or the outcomes recorded for one project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.HistoryPath()); os.IsNotExist(err) {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if projectName != "" {
				entries, err := store.Outcomes(cmd.Context(), projectName, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintf(out, "No outcomes recorded for %s\n", projectName)
					return nil
				}
				fmt.Fprintln(out, renderOutcomes(entries))
				return nil
			}

			runs, err := store.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().StringVar(&projectName, "project", "", "Show outcomes for one project")
	return cmd
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		interrupted := "no"
		if r.Interrupted {
			interrupted = "yes"
		}
		rows = append(rows, []string{
			shortRunID(r.ID),
			formatTimestamp(r.StartedAt),
			formatDuration(r.FinishedAt.Sub(r.StartedAt)),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			interrupted,
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Duration", "Succeeded", "Failed", "Interrupted"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderOutcomes(entries []history.Entry) string {
	title := cases.Title(language.Und)
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		rows = append(rows, []string{
			formatTimestamp(e.RecordedAt),
			shortRunID(e.RunID),
			title.String(e.Step),
			title.String(result),
			e.Message,
		})
	}
	return renderTable(
		[]string{"Recorded", "Run", "Step", "Result", "Message"},
		rows,
		nil,
	)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
