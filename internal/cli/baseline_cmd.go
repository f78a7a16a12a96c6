package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
)

func newBaselineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Capture and list plan baselines",
	}
	cmd.AddCommand(newBaselineCaptureCmd(app), newBaselineListCmd(app))
	return cmd
}

func newBaselineCaptureCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "capture NAME",
		Short: "Freeze the current plan windows as a baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := app.Baselines.Capture(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Captured baseline %s [%s] with %d activities\n", b.Name, b.ID, len(b.Entries))
			return nil
		},
	}
}

func newBaselineListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List captured baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := app.Baselines.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatBaselines(bs))
			return nil
		},
	}
}
