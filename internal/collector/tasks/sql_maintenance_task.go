package tasks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// newSQLMaintenanceTask creates the scheduled task function for running database maintenance.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With(zap.String("task", "sql_maintenance"))

	return func(ctx context.Context) error {
		start := time.Now()

		if err := deps.Store.RunMaintenance(ctx); err != nil {
			log.Error("SQL maintenance task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.Info("SQL maintenance task completed", zap.Duration("duration", time.Since(start)))
		return nil
	}
}
