package tasks

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// newIngestStatsTask logs table sizes and, when ingestion runs, the loop counters.
func newIngestStatsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With(zap.String("task", "ingest_stats"))

	return func(ctx context.Context) error {
		stats, err := deps.Store.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to collect stats: %w", err)
		}

		fields := []zap.Field{
			zap.Int64("users", stats.Users),
			zap.Int64("chats", stats.Chats),
			zap.Int64("messages", stats.Messages),
		}
		if deps.Counters != nil {
			c := deps.Counters()
			fields = append(fields,
				zap.Int64("processed", c.Processed),
				zap.Int64("stored", c.Stored),
				zap.Int64("duplicates", c.Duplicates),
				zap.Int64("failed", c.Failed),
				zap.Int64("skipped", c.Skipped),
				zap.Int64("transport_errors", c.TransportErrors),
			)
		}

		log.Info("Collector statistics", fields...)
		return nil
	}
}
