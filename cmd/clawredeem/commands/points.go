package commands

import (
	"context"
	"errors"

	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/config"
	"clawredeem/internal/redeemer"
	"clawredeem/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pointsCmd)
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Logs in and prints the current points balance.",
	Run: func(cmd *cobra.Command, args []string) {
		err := points(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to read points", err)
		}
	},
}

func points(ctx context.Context) error {
	settings := loadSettings()
	creds, err := config.LoadCredentials(settings.UserFile)
	if err != nil {
		return err
	}

	shutdown := setupTelemetry(ctx, settings)
	defer shutdown()

	tel := telemetry.NewSlogAPI(nil)
	session, err := newSession(settings, tel)
	if err != nil {
		return err
	}

	r := redeemer.New(redeemer.Options{
		Session:     session,
		Endpoints:   settings.Endpoints,
		Credentials: creds,
		Pacing:      settings.Pacing,
		Transport:   redeemer.AbortOnTransportError,
		Clock:       chrono.NewStandardImpl(),
		Sink:        &consoleSink{},
		Tel:         tel,
	})

	err = r.Login(ctx)
	if err != nil {
		return err
	}
	balance, ok, abort := r.Points(ctx)
	if abort != nil {
		return abort
	}
	if !ok {
		return errors.New("the dashboard did not show a balance")
	}

	t := newTable()
	t.AppendHeader(table.Row{"Total", "Redeemable", "Claimed"})
	t.AppendRow(table.Row{balance.Total, balance.Redeemable, balance.Claimed})
	t.Render()
	return nil
}
