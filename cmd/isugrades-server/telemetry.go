package main

import (
	"context"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/pkg/restyutil"
	"isugrades-backend/pkg/serviceutil"
	"log/slog"
)

// InitTelemetry configures logging and the otel providers, the providers are
// flushed once ctx is done. In verbose mode every portal request is dumped to
// `<dev_state>/resty/isu`.
func InitTelemetry(ctx context.Context, verbose bool, config telemetry.Config) restyutil.InstrumentOutput {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	t, err := telemetry.Setup(ctx, "isugrades-server", config)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		t.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx, telemetry.SlogAPI{})

	if !verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/isu")
	if err != nil {
		serviceutil.Fatal("create resty output", err)
	}
	return output
}
