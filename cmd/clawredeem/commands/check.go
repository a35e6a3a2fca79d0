package commands

import (
	"context"
	"fmt"
	"os"

	"clawredeem/internal/components/chrono"
	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/config"
	"clawredeem/internal/journal"
	"clawredeem/internal/scrapers/clawportal"
	"clawredeem/pkg/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	checkCmd.Flags().StringVar(&codesFile, "codes", "", "The codes file to read (overrides codes_file).")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check [--codes <path/to/codes.txt>]",
	Short: "Checks the codes file without contacting the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		err := check(cmd.Context())
		if err != nil {
			serviceutil.Fatal("check failed", err)
		}
	},
}

// previouslyAccepted reads the journal if one was written before, it is
// never created by check.
func previouslyAccepted(ctx context.Context, path string) map[string]bool {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	j, err := journal.Open(path, chrono.NewStandardImpl(), telemetry.NewSlogAPI(nil))
	if err != nil {
		return nil
	}
	defer j.Close()
	accepted, err := j.AcceptedCodes(ctx)
	if err != nil {
		return nil
	}
	return accepted
}

func check(ctx context.Context) error {
	settings := loadSettings()
	if codesFile != "" {
		settings.CodesFile = codesFile
	}
	codes, err := config.LoadCodes(settings.CodesFile)
	if err != nil {
		return err
	}
	accepted := previouslyAccepted(ctx, settings.Journal)

	seen := make(map[string]int, len(codes))
	invalid := 0

	t := newTable()
	t.AppendHeader(table.Row{"#", "Code", "Length", "Status"})
	for i, code := range codes {
		status := "ok"
		switch {
		case clawportal.ValidateCode(code) != nil:
			status = fmt.Sprintf("invalid, must be %d or %d characters", clawportal.ShortCodeLength, clawportal.LongCodeLength)
			invalid++
		case seen[code] > 0:
			status = fmt.Sprintf("duplicate of #%d", seen[code])
		case accepted[code]:
			status = "accepted in an earlier run"
		}
		if _, ok := seen[code]; !ok {
			seen[code] = i + 1
		}
		t.AppendRow(table.Row{i + 1, code, clawportal.CodeLength(code), status})
	}
	t.Render()

	if invalid > 0 {
		return fmt.Errorf("%d of %d codes are invalid, a run would stop at the first one", invalid, len(codes))
	}
	return nil
}
