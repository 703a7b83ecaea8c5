// Command allocation-tracker serves the allocation ledger over HTTP and
// manages it from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"allocation-tracker/internal/cli"
	"allocation-tracker/internal/config"
	"allocation-tracker/internal/log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	appConfig *config.Config
	logger    *log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "allocation-tracker",
	Short:         "Track payments against fixed allocation budgets",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd == versionCmd {
			return nil
		}
		cli.LoadEnvFile()
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = cli.SetupLogger(cfg, os.Stderr)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "allocation-tracker", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
