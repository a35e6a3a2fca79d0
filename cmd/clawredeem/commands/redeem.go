package commands

import (
	"context"
	"fmt"
	"log/slog"

	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/config"
	"clawredeem/internal/journal"
	"clawredeem/internal/redeemer"
	"clawredeem/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var codesFile string

func init() {
	redeemCmd.Flags().StringVar(&codesFile, "codes", "", "The codes file to read (overrides codes_file).")
	rootCmd.AddCommand(redeemCmd)
}

var redeemCmd = &cobra.Command{
	Use:   "redeem [--codes <path/to/codes.txt>]",
	Short: "Logs in and submits every code in the codes file, one after another.",
	Run: func(cmd *cobra.Command, args []string) {
		err := redeem(cmd.Context())
		if err != nil {
			serviceutil.Fatal("redeem failed", err)
		}
	},
}

func redeem(ctx context.Context) error {
	settings := loadSettings()
	if codesFile != "" {
		settings.CodesFile = codesFile
	}

	creds, err := config.LoadCredentials(settings.UserFile)
	if err != nil {
		return err
	}
	codes, err := config.LoadCodes(settings.CodesFile)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		slog.Warn("no codes to redeem", "file", settings.CodesFile)
	}

	shutdown := setupTelemetry(ctx, settings)
	defer shutdown()

	tel := telemetry.NewSlogAPI(nil)
	clock := chrono.NewStandardImpl()

	session, err := newSession(settings, tel)
	if err != nil {
		return err
	}

	sinks := redeemer.Sinks{&consoleSink{}}
	if settings.Journal != "" {
		j, err := journal.Open(settings.Journal, clock, tel)
		if err != nil {
			return err
		}
		defer j.Close()
		sinks = append(sinks, j)
	}

	r := redeemer.New(redeemer.Options{
		Session:     session,
		Endpoints:   settings.Endpoints,
		Credentials: creds,
		Pacing:      settings.Pacing,
		Transport:   settings.Transport,
		Clock:       clock,
		Sink:        sinks,
		Tel:         tel,
	})

	summary, err := r.Run(ctx, codes)
	printSummary(summary)
	return err
}

func printSummary(summary redeemer.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Code", "Result", "Message"})
	for _, result := range summary.Results {
		status := result.Outcome.Kind.String()
		message := result.Outcome.Message
		if result.Skipped() {
			status = "skipped"
			message = result.SkipErr.Error()
		}
		t.AppendRow(table.Row{result.Index + 1, result.Code, status, message})
	}

	footer := fmt.Sprintf("%d/%d submitted", len(summary.Results), summary.Total)
	if summary.Points != nil {
		footer = fmt.Sprintf(
			"%s, %d points (%d redeemable, %d claimed)",
			footer, summary.Points.Total, summary.Points.Redeemable, summary.Points.Claimed,
		)
	}
	t.AppendFooter(table.Row{"", summary.State.String(), footer, ""})
	t.Render()
}
