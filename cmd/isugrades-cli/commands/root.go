package commands

import (
	"context"
	"fmt"
	"isugrades-backend/internal/components/telemetry"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	dbUrl   string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "isugrades-cli",
	Short: "isugrades-cli is a CLI for logging into the ISU portal and inspecting stored gradebooks.",
	// failures of a command are not usage errors
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			telemetry.InitSlog(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "<dev_state>/isugrades.db", "The sqlite database gradebooks are stored in.")
	rootCmd.PersistentFlags().StringVar(&dbUrl, "db-url", "", "A libsql database url, takes precedence over --db.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
