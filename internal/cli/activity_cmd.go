package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

func newActivityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"act"},
		Short:   "Inspect activities and move them through their lifecycle",
	}
	cmd.AddCommand(
		newActivityListCmd(app),
		newActivityShowCmd(app),
		newActivityTransitionCmd(app),
	)
	return cmd
}

func newActivityListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List activities in id order",
		RunE: func(cmd *cobra.Command, args []string) error {
			acts, err := app.Activities.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatActivities(acts))
			return nil
		},
	}
}

func newActivityShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one activity with its timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Activities.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatActivity(a))
			return nil
		},
	}
}

func newActivityTransitionCmd(app *App) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "transition ID STATE",
		Short: "Move an activity to a new state and reflow",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := domain.ActivityState(args[1])
			if !to.Valid() {
				return fmt.Errorf("unknown state %q", args[1])
			}
			resp, err := app.Activities.Transition(cmd.Context(), contract.TransitionRequest{
				ActivityID: args[0],
				To:         to,
				Actor:      actor,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition(resp))
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Actor recorded on history events")
	return cmd
}
