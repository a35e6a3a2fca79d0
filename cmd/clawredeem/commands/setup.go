package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/config"
	"clawredeem/internal/scrapers/clawportal"
	"clawredeem/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
)

const serviceName = "clawredeem"

func loadSettings() config.Settings {
	settings, err := config.Load(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if dumpDir != "" {
		settings.DumpDir = dumpDir
	}
	return settings
}

// setupTelemetry installs the OTLP providers, the returned function flushes
// them.
func setupTelemetry(ctx context.Context, settings config.Settings) func() {
	providers, err := telemetry.Setup(ctx, serviceName, settings.Telemetry)
	if err != nil {
		slog.Warn("failed to setup telemetry, continuing without it", "err", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := providers.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}
}

func newSession(settings config.Settings, tel telemetry.API) (*clawportal.Session, error) {
	opts := clawportal.SessionOptions{
		BaseUrl:           settings.BaseUrl,
		RequestsPerSecond: settings.RequestsPerSecond,
	}
	if settings.DumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(settings.DumpDir)
		if err != nil {
			return nil, err
		}
		opts.Output = output
		slog.Info("writing requests to disk", "dir", output.Dir())
	}
	return clawportal.NewSession(opts, tel)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
