package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/collector"
	"github.com/edgard/tgcollector/internal/collector/tasks"
	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/ingest"
	"github.com/edgard/tgcollector/internal/normalize"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the collector until terminated (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollector(cmd.Context(), flags)
		},
	}
}

// runCollector initializes every component, blocks until ctx is cancelled and
// shuts down in reverse order.
func runCollector(ctx context.Context, flags *rootFlags) error {
	cfg, log, err := setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDB(cfg.Database.URL, poolConfig(cfg), log)
	if err != nil {
		log.Error("Failed to connect to database", zap.String("url", database.RedactDSN(cfg.Database.URL)), zap.Error(err))
		return err
	}
	defer database.CloseDB(db, log)
	store := database.NewStore(db, log)

	var opts []collector.Option
	taskDeps := tasks.TaskDeps{Logger: log, Store: store}

	if cfg.IsTelegramConfigured() {
		transport := newTransport(cfg, log)
		sessions := newSessionManager(cfg, log)
		if err := sessions.Open(ctx, transport); err != nil {
			log.Error("Failed to open Telegram session", zap.String("transport", cfg.Transport()), zap.Error(err))
			return err
		}

		loop := ingest.NewLoop(transport, normalize.New(store, log), ingest.Config{
			PollTimeout: cfg.Ingest.PollTimeout,
			ErrorDelay:  cfg.Ingest.ErrorDelay,
		}, log)
		taskDeps.Counters = loop.Counters
		opts = append(opts, collector.WithIngester(loop), collector.WithTransport(transport, sessions))
	} else {
		warnMissingCredentials(cfg, log)
	}

	sched, err := collector.NewScheduler(log, cfg.Scheduler, tasks.RegisterAllTasks(taskDeps))
	if err != nil {
		log.Error("Failed to create scheduler", zap.Error(err))
		return err
	}

	app := collector.NewApp(log, sched, opts...)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
