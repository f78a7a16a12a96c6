package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

func newReflowCmd(app *App) *cobra.Command {
	var (
		p        perturbationFlags
		trigger  string
		actor    string
		baseline string
		asOf     string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "reflow",
		Short: "Apply actuals, locks or pins and recompute the plan",
		Long: `Reflow applies the given perturbations, moves every movable activity to
its earliest feasible start, and commits the new plan together with a run
record and history events. With no perturbations it performs a full
recompute. Use --dry-run to preview without committing.`,
		Example: `  trflow reflow --actual-start LOAD=2026-03-01T07:10:00Z --progress LOAD=40
  trflow reflow --pin SAIL=2026-03-02T06:00:00Z --dry-run
  trflow reflow --lock LOAD=hard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := p.inferTrigger()
			if cmd.Flags().Changed("trigger") {
				kind = domain.TriggerKind(trigger)
			}
			req := contract.NewReflowRequest(kind)
			req.Actor = actor
			req.DryRun = dryRun
			req.Baseline = baseline

			perturbations, err := p.build()
			if err != nil {
				return err
			}
			req.Perturbations = perturbations
			if req.AsOf, err = parseOptionalTime(asOf); err != nil {
				return err
			}

			resp, err := app.Reflow.Reflow(cmd.Context(), req)
			if err != nil {
				var rerr *contract.ReflowError
				if errors.As(err, &rerr) && rerr.Run != nil {
					fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatRun(rerr.Run))
					if len(rerr.Run.Collisions) > 0 {
						fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatCollisionTable(rerr.Run.Collisions))
					}
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatReflow(resp))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&trigger, "trigger", "", "Trigger kind: actuals, locks, pins or recompute (inferred from inputs)")
	f.StringVar(&actor, "actor", "", "Actor recorded on history events")
	f.StringVar(&baseline, "baseline", "", "Baseline to compare: an id, latest or none")
	f.StringVar(&asOf, "as-of", "", "Count remaining work of running activities from this time")
	f.BoolVar(&dryRun, "dry-run", false, "Preview the reflow without committing")
	p.register(f)

	return cmd
}
