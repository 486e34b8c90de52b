package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"cotejo/database"
	"cotejo/exporter"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run history",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsDeleteCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctn, err := ctx.requireStore()
			if err != nil {
				return err
			}
			defer ctx.close()

			runs, err := ctn.ReconciliationUseCase.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, len(runs))
			for i, run := range runs {
				matches := "-"
				if run.Stats != nil {
					matches = fmt.Sprintf("%d / %d", run.ResultCount, run.Stats.TargetRows)
				}
				rows[i] = []string{
					run.ID,
					string(run.Status),
					formatTime(run.StartedAt),
					truncateText(run.SourceName, 24),
					truncateText(run.TargetName, 24),
					matches,
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Started", "Source", "Target", "Matches"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var export string
	var showRows int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctn, err := ctx.requireStore()
			if err != nil {
				return err
			}
			defer ctx.close()

			run, results, err := ctn.ReconciliationUseCase.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printRun(out, run)
			printMatches(out, results, showRows)

			if export != "" {
				if err := exporter.WriteFile(export, exporter.ResultsTable(results)); err != nil {
					return fmt.Errorf("export run: %w", err)
				}
				fmt.Fprintf(out, "Exported %d matches to %s\n", len(results), export)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&export, "export", "o", "", "Write the matches to a file (.xlsx, .csv or .json)")
	cmd.Flags().IntVar(&showRows, "show", 20, "Matches to print")
	return cmd
}

func newRunsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctn, err := ctx.requireStore()
			if err != nil {
				return err
			}
			defer ctx.close()

			if err := ctn.Store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func printRun(out io.Writer, run *database.Run) {
	pairs := [][2]string{
		{"Run", run.ID},
		{"Status", string(run.Status)},
		{"Source", run.SourceName},
		{"Target", run.TargetName},
		{"Started", formatTime(run.StartedAt)},
	}
	if run.FinishedAt != nil {
		pairs = append(pairs, [2]string{"Finished", formatTime(*run.FinishedAt)})
	}
	pairs = append(pairs,
		[2]string{"Prefilter", strconv.FormatFloat(run.Options.PreFilterThreshold, 'f', -1, 64)},
		[2]string{"Arbiter", yesNo(run.Options.UseArbiter)},
		[2]string{"Matches", strconv.Itoa(run.ResultCount)},
	)
	if run.Stats != nil {
		pairs = append(pairs,
			[2]string{"Target rows", strconv.Itoa(run.Stats.TargetRows)},
			[2]string{"Elapsed", formatSeconds(run.Stats.Elapsed)},
			[2]string{"Items/sec", fmt.Sprintf("%.2f", run.Stats.ItemsPerSecond())},
		)
	}
	if run.Error != "" {
		pairs = append(pairs, [2]string{"Error", run.Error})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
