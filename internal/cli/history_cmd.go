package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show reflow runs and change history",
	}
	cmd.AddCommand(
		newHistoryActivityCmd(app),
		newHistoryRunCmd(app),
		newHistoryRunsCmd(app),
	)
	return cmd
}

func newHistoryActivityCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "activity ID",
		Short: "List every recorded change to one activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := app.History.ListByActivity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHistory(events))
			return nil
		},
	}
}

func newHistoryRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run ID",
		Short: "Show one reflow run and its history events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := app.History.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := app.History.ListByRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, formatter.FormatRun(run))
			fmt.Fprintln(out)
			fmt.Fprint(out, formatter.FormatHistory(events))
			return nil
		},
	}
}

func newHistoryRunsCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent reflow runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := app.History.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRuns(runs))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}
