package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
	"github.com/macho715/tr-dash/internal/contract"
	"github.com/macho715/tr-dash/internal/domain"
)

var errScheduleInvalid = errors.New("schedule has structural errors or dependency cycles")

func newValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the dependency graph for malformed links and cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.Schedule.Validate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatValidate(resp))
			if !resp.OK() {
				return errScheduleInvalid
			}
			return nil
		},
	}
}

func newTimingCmd(app *App) *cobra.Command {
	var (
		asOf     string
		critical bool
	)

	cmd := &cobra.Command{
		Use:   "timing",
		Short: "Show early/late dates and float for every activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := contract.TimingRequest{CriticalOnly: critical}
			var err error
			if req.AsOf, err = parseOptionalTime(asOf); err != nil {
				return err
			}
			resp, err := app.Schedule.Compute(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTiming(resp))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Count remaining work of running activities from this time")
	cmd.Flags().BoolVar(&critical, "critical", false, "Only show critical activities")
	return cmd
}

func newCollisionsCmd(app *App) *cobra.Command {
	var (
		baseline    string
		minSeverity string
		failOn      string
	)

	cmd := &cobra.Command{
		Use:     "collisions",
		Aliases: []string{"detect"},
		Short:   "Detect collisions in the committed plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := contract.CollisionRequest{Baseline: baseline}
			if minSeverity != "" {
				sev, err := parseSeverity(minSeverity)
				if err != nil {
					return err
				}
				req.MinSeverity = sev
			}
			var threshold domain.Severity
			if failOn != "" {
				sev, err := parseSeverity(failOn)
				if err != nil {
					return err
				}
				threshold = sev
			}

			resp, err := app.Schedule.Detect(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCollisions(resp))
			if threshold != "" && resp.MaxSeverity != "" && resp.MaxSeverity.Rank() >= threshold.Rank() {
				return fmt.Errorf("collisions at or above %s severity", threshold)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseline, "baseline", "", "Baseline to compare: an id, latest or none")
	cmd.Flags().StringVar(&minSeverity, "min-severity", "", "Hide collisions below this severity (minor, major, blocking)")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit non-zero when a collision reaches this severity")
	return cmd
}

func parseSeverity(s string) (domain.Severity, error) {
	switch sev := domain.Severity(s); sev {
	case domain.SeverityMinor, domain.SeverityMajor, domain.SeverityBlocking:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q (want minor, major or blocking)", s)
}
