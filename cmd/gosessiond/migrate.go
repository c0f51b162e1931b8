package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goSession/internal/migrate"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Session table migrations",
		Long:  `Manage the SQL tier schema: apply pending migrations, roll them back, or show the applied version.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			RunE:  runMigrateVersion,
		},
	)
	return cmd
}

func withDatabase(ctx context.Context, fn func(rt *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is not configured")
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(&app{cfg: cfg, logger: initLogger(cfg), db: db})
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withDatabase(cmd.Context(), func(rt *app) error {
		return migrate.Run(rt.db, rt.logger)
	})
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return withDatabase(cmd.Context(), func(rt *app) error {
		if err := migrate.Down(rt.db); err != nil {
			return err
		}
		rt.logger.Info("session schema rolled back")
		return nil
	})
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	return withDatabase(cmd.Context(), func(rt *app) error {
		version, dirty, err := migrate.Version(rt.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
		return nil
	})
}
