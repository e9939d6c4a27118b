package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/fishing-catch-etl/internal/adapter/http"
	"github.com/couchcryptid/fishing-catch-etl/internal/adapter/appsync"
	"github.com/couchcryptid/fishing-catch-etl/internal/app"
	"github.com/couchcryptid/fishing-catch-etl/internal/config"
	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
	"github.com/couchcryptid/fishing-catch-etl/internal/observability"
	"github.com/couchcryptid/fishing-catch-etl/internal/pipeline"
	"github.com/couchcryptid/fishing-catch-etl/internal/scheduler"
)

// options are command-line overrides of the environment.
type options struct {
	Facility string `long:"facility" description:"Facility to ingest (overrides FACILITY_DEFAULT)"`
	Date     string `long:"date" description:"Single target date, YYYY-MM-DD (overrides TARGET_DATE)"`
	Start    string `long:"start" description:"First date of a range, YYYY-MM-DD (overrides START_DATE)"`
	End      string `long:"end" description:"Last date of a range, YYYY-MM-DD (overrides END_DATE)"`
	Once     bool   `long:"once" description:"Run once and exit even when ETL_SCHEDULE is set"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	dotenvErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.ValidateIngest(); err != nil {
		slog.Error("invalid ingest config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if dotenvErr != nil {
		logger.Debug("no .env file loaded", "error", dotenvErr)
	}
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers app.Closers
	defer func() {
		if err := closers.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	st, err := app.OpenStore(ctx, cfg, &closers)
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		return 1
	}
	arc, err := app.OpenArchive(cfg)
	if err != nil {
		logger.Error("failed to open archive", "backend", cfg.ArchiveBackend, "error", err)
		return 1
	}
	notifier, err := app.OpenNotifier(ctx, cfg, logger, &closers)
	if err != nil {
		logger.Error("failed to open notifier", "error", err)
		return 1
	}
	apiKey, err := app.ResolveAPIKey(ctx, cfg)
	if err != nil {
		logger.Error("failed to resolve api key", "error", err)
		return 1
	}

	fetcher := appsync.NewClient(cfg.AppSyncURL, apiKey, cfg.AppSyncTimeout, cfg.AppSyncMaxAttempts, logger)
	ingester := pipeline.New(fetcher, arc, st, notifier, logger, metrics, pipeline.Options{
		FieldCondition: cfg.IngestFieldCondition,
		FishingReport:  cfg.IngestFishingReport,
	})

	if cfg.Schedule == "" || opts.Once {
		res, err := ingester.Run(ctx, cfg.Facility, cfg.Dates)
		if err != nil {
			return 1
		}
		logger.Info("run complete", "status", res.Status, "succeeded", len(res.Succeeded), "failed", len(res.Errors))
		return 0
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Checks{st, arc}, nil, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched := scheduler.New(cfg.Location, logger)
	err = sched.Run(ctx, cfg.Schedule, func(ctx context.Context) {
		// Scheduled runs always ingest the default day.
		if _, err := ingester.Run(ctx, cfg.Facility, domain.DateSpec{}); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("scheduler error", "error", err)
		return 1
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return 0
}

// apply overrides cfg with any flags given. Date flags replace the whole
// date input so a --date cannot be shadowed by a START_DATE in the env.
func (o options) apply(cfg *config.Config) {
	if o.Facility != "" {
		cfg.Facility = o.Facility
	}
	if o.Date != "" || o.Start != "" || o.End != "" {
		cfg.Dates = domain.DateSpec{Target: o.Date, Start: o.Start, End: o.End}
	}
}
