package main

import (
	"context"
	"flag"
	"fmt"
	"isugrades-backend/internal/components/chrono"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/db"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/internal/scrapers/isu"
	"isugrades-backend/internal/service"
	"isugrades-backend/pkg/configutil"
	"isugrades-backend/pkg/restyutil"
	"isugrades-backend/pkg/serviceutil"
	"time"
)

const report_stats_gradebooks = "stats.gradebooks"

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	cfg.setDefaults()

	output := InitTelemetry(ctx, *verbose, cfg.Telemetry)

	err = run(ctx, cfg, output)
	if err != nil {
		serviceutil.Fatal("run server", err)
	}
}

// run serves until ctx is done, everything it opens is closed before it
// returns.
func run(ctx context.Context, cfg Config, output restyutil.InstrumentOutput) error {
	tel := telemetry.SlogAPI{}

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return fmt.Errorf("load portal timezone: %w", err)
	}

	sqlite, err := cfg.Database.OpenDB(db.Schema)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlite.Close()
	store := gradestore.NewStore(sqlite, clock, tel)

	cron := chrono.NewStandardCron(clock, tel)
	err = cron.Cron(cfg.StatsCron, func() {
		count, err := store.Count(ctx)
		if err != nil {
			tel.ReportWarning(report_stats_gradebooks, err)
			return
		}
		tel.ReportCount(report_stats_gradebooks, count)
	})
	if err != nil {
		return fmt.Errorf("schedule stats: %w", err)
	}

	svc := service.NewService(service.Options{
		Client: isu.Options{
			BaseUrl:          cfg.Portal.BaseUrl,
			Timeout:          time.Duration(cfg.Portal.TimeoutSeconds) * time.Second,
			CloudflareBypass: cfg.Portal.CloudflareBypass,
			Store:            store,
			Time:             clock,
			Telemetry:        tel,
			Output:           output,
		},
		SessionTTL: time.Duration(cfg.SessionTtlMinutes) * time.Minute,
	})

	serveErr := serviceutil.StartHttpServer(ctx, cfg.Port, svc.Handler())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	cron.Stop(shutdownCtx)
	err = svc.Shutdown(shutdownCtx)
	if err != nil {
		tel.ReportWarning("shutdown", err)
	}

	if serveErr != nil {
		return fmt.Errorf("serve http: %w", serveErr)
	}
	return nil
}
