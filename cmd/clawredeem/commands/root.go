package commands

import (
	"context"
	"fmt"
	"os"

	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	dumpDir    string
)

var rootCmd = &cobra.Command{
	Use:   "clawredeem",
	Short: "clawredeem logs into the claw points portal and redeems a list of codes.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "The config file to read, a .local variant next to it overrides it.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug messages, including every request.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Write every request and response into <dir>/clawredeem-dump (overrides dump_dir).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
