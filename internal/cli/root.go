package cli

import (
	"github.com/spf13/cobra"

	"github.com/macho715/tr-dash/internal/cli/formatter"
	"github.com/macho715/tr-dash/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Reflow     service.ReflowService
	Schedule   service.ScheduleService
	Baselines  service.BaselineService
	Activities service.ActivityService
	History    service.HistoryService
	Import     service.ImportService
	Export     service.ExportService

	// Setup wires the services from the global flags before a command runs.
	// Tests leave it nil and fill the services directly.
	Setup func(opts GlobalOptions) error

	// IsTerminal reports whether stdout is a terminal; styling is dropped
	// when it is nil or returns false.
	IsTerminal func() bool
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath  string
	DBPath      string
	MetricsFile string
	NoColor     bool
}

// NewRootCmd creates the top-level "trflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	var opts GlobalOptions

	root := &cobra.Command{
		Use:           "trflow",
		Short:         "Critical-path reflow and collision detection for transport schedules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			formatter.SetPlain(opts.NoColor || app.IsTerminal == nil || !app.IsTerminal())
			if app.Setup != nil {
				return app.Setup(opts)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Config file (yaml or json)")
	flags.StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command")
	flags.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newReflowCmd(app),
		newValidateCmd(app),
		newTimingCmd(app),
		newCollisionsCmd(app),
		newBaselineCmd(app),
		newActivityCmd(app),
		newHistoryCmd(app),
		newImportCmd(app),
		newExportCmd(app),
	)

	return root
}
