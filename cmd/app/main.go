package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = ""
	commit  = "none"
)

var (
	flagConfig string
	flagDev    bool
)

var rootCmd = &cobra.Command{
	Use:           "app",
	Short:         "FinanceFlow message ingestion",
	Long:          "Webhook ingress, queue worker and maintenance jobs for FinanceFlow.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDev, "dev", false, "developer mode (console logs, noop adapters without keys)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
