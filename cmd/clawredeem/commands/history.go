package commands

import (
	"context"
	"errors"
	"strconv"
	"time"

	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/journal"
	"clawredeem/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "How many runs to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [run id]",
	Short: "Lists recorded runs, or the codes submitted in one run.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := history(cmd.Context(), args)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}
	},
}

const timeLayout = time.DateTime

func history(ctx context.Context, args []string) error {
	settings := loadSettings()
	if settings.Journal == "" {
		return errors.New("the journal is turned off in the config")
	}
	j, err := journal.Open(settings.Journal, chrono.NewStandardImpl(), telemetry.NewSlogAPI(nil))
	if err != nil {
		return err
	}
	defer j.Close()

	if len(args) == 1 {
		return printRun(ctx, j, args[0])
	}

	runs, err := j.Runs(ctx, historyLimit)
	if err != nil {
		return err
	}
	t := newTable()
	t.AppendHeader(table.Row{"Run", "Started", "Took", "Codes", "State", "Points", "Reason"})
	for _, run := range runs {
		took := ""
		if !run.Finished.IsZero() {
			took = run.Finished.Sub(run.Started).String()
		}
		points := ""
		if run.Points != nil {
			points = strconv.Itoa(run.Points.Total)
		}
		t.AppendRow(table.Row{run.Id, run.Started.Format(timeLayout), took, run.Total, run.State, points, run.Reason})
	}
	t.Render()
	return nil
}

func printRun(ctx context.Context, j *journal.Journal, runId string) error {
	run, err := j.Run(ctx, runId)
	if err != nil {
		return err
	}
	submissions, err := j.Submissions(ctx, runId)
	if err != nil {
		return err
	}

	t := newTable()
	t.SetTitle("%s (%s)", run.Id, run.State)
	t.AppendHeader(table.Row{"#", "Code", "Result", "Message", "At"})
	for _, s := range submissions {
		t.AppendRow(table.Row{s.Index + 1, s.Code, s.Outcome, s.Message, s.At.Format(timeLayout)})
	}
	t.Render()
	return nil
}
