package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired sessions once",
		Long:  `Run a single expiry sweep across every configured tier and print the number of records removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.manager.CleanupExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed=%d\n", n)
			return nil
		},
	}
}

func newLintCommand() *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the configuration for risky settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			sessCfg := cfg.sessionConfig()
			if err := sessCfg.Validate(); err != nil {
				return err
			}
			ws := sessCfg.Lint()
			for _, w := range ws {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4s %s: %s\n", w.Severity, w.Code, w.Message)
			}
			threshold, err := parseSeverity(failOn)
			if err != nil {
				return err
			}
			return ws.AsError(threshold)
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "high", "Lowest severity that fails the check (info, warn, high)")
	return cmd
}
