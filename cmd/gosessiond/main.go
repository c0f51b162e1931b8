// Command gosessiond runs the tiered session store as a standalone service
// and carries its maintenance commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gosessiond",
		Short:        "Tiered session store daemon",
		Long:         `gosessiond serves health, metrics and security reports for a Redis, SQL and in-memory session store, and runs its schema migrations and expiry sweeps.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/gosession.yaml)")

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSweepCommand(),
		newLintCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
