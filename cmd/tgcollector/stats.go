package main

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/database"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts for the collected entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(flags, func(db *sqlx.DB, log *zap.Logger) error {
				stats, err := database.NewStore(db, log).Stats(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "users: %d\nchats: %d\nmessages: %d\n",
					stats.Users, stats.Chats, stats.Messages)
				return err
			})
		},
	}
}

// withDatabase opens the configured database without migrating it and runs fn.
func withDatabase(flags *rootFlags, fn func(db *sqlx.DB, log *zap.Logger) error) error {
	cfg, log, err := setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.Database.URL, poolConfig(cfg))
	if err != nil {
		log.Error("Failed to connect to database", zap.String("url", database.RedactDSN(cfg.Database.URL)), zap.Error(err))
		return err
	}
	defer database.CloseDB(db, log)

	if err := fn(db, log); err != nil {
		log.Error("Command failed", zap.Error(err))
		return err
	}
	return nil
}
