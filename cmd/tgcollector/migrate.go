package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/database"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(flags, func(dsn string, log *zap.Logger) error {
				return database.ApplyMigrations(dsn, log)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(flags, func(dsn string, log *zap.Logger) error {
				return database.RollbackMigrations(dsn, log)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(flags, func(dsn string, _ *zap.Logger) error {
				version, dirty, err := database.MigrationVersion(dsn)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return err
			})
		},
	})

	return cmd
}

// withMigrations loads the configuration and runs fn with the database DSN.
// The migration helpers open and close their own connection.
func withMigrations(flags *rootFlags, fn func(dsn string, log *zap.Logger) error) error {
	cfg, log, err := setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := fn(cfg.Database.URL, log); err != nil {
		log.Error("Migration command failed", zap.String("url", database.RedactDSN(cfg.Database.URL)), zap.Error(err))
		return err
	}
	return nil
}
