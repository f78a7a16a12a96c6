package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/macho715/tr-dash/internal/cli"
	"github.com/macho715/tr-dash/internal/collision"
	"github.com/macho715/tr-dash/internal/config"
	"github.com/macho715/tr-dash/internal/db"
	"github.com/macho715/tr-dash/internal/logger"
	"github.com/macho715/tr-dash/internal/metrics"
	"github.com/macho715/tr-dash/internal/publish"
	"github.com/macho715/tr-dash/internal/repository"
	"github.com/macho715/tr-dash/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		IsTerminal: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	app.Setup = func(opts cli.GlobalOptions) error {
		fns, err := wire(app, opts)
		cleanup = fns
		return err
	}

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// wire loads configuration and builds every service behind the CLI. The
// returned funcs release resources in reverse order.
func wire(app *cli.App, opts cli.GlobalOptions) ([]func(), error) {
	var cleanup []func()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cleanup, err
	}
	if opts.DBPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = opts.DBPath
	}
	if opts.MetricsFile != "" {
		cfg.Metrics.TextfilePath = opts.MetricsFile
	}

	logOpts := logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Format == "console"}
	log := logger.NewWithOptions("trflow", logOpts)

	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		return cleanup, err
	}
	cleanup = append(cleanup, closeStore)

	var publisher publish.Publisher = publish.NopPublisher{}
	if cfg.MQTT.Enabled {
		p, err := publish.NewMQTTPublisher(cfg.MQTT, logger.NewWithOptions("publish", logOpts))
		if err != nil {
			return cleanup, fmt.Errorf("starting history publisher: %w", err)
		}
		publisher = p
		cleanup = append(cleanup, p.Close)
	}

	registry := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(registry)
	if err != nil {
		return cleanup, err
	}
	if path := cfg.Metrics.TextfilePath; path != "" {
		cleanup = append(cleanup, func() {
			if err := metrics.WriteTextfile(path, registry); err != nil {
				log.Errorf("metrics: %v", err)
			}
		})
	}

	svcOpts := []service.Option{
		service.WithObserver(service.NewLogUseCaseObserver(logger.NewWithOptions("service", logOpts))),
		service.WithPublisher(publisher),
		service.WithMetrics(sink),
		service.WithLogger(log),
	}
	defaults := service.Defaults{
		Actor:    cfg.Reflow.Actor,
		Baseline: cfg.Reflow.Baseline,
		BaselineOptions: collision.BaselineOptions{
			Tolerance:  cfg.Reflow.Tolerance(),
			MajorAfter: cfg.Reflow.MajorAfter(),
		},
	}

	reflow := service.NewReflowService(store, defaults, svcOpts...)
	app.Reflow = reflow
	app.Schedule = service.NewScheduleService(store, defaults, svcOpts...)
	app.Baselines = service.NewBaselineService(store, svcOpts...)
	app.Activities = service.NewActivityService(store, reflow)
	app.History = service.NewHistoryService(store)
	app.Import = service.NewImportService(store, svcOpts...)
	app.Export = service.NewExportService(store)
	return cleanup, nil
}

func openStore(cfg config.DatabaseConfig) (repository.Store, func(), error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryStore(), func() {}, nil
	}
	database, err := db.OpenDB(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewSQLiteStore(database, db.NewSQLiteUnitOfWork(database)), func() { database.Close() }, nil
}
