package tasks

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/config"
	"github.com/edgard/tgcollector/internal/logger"
)

// ScheduledTaskFunc is the signature shared by all scheduled tasks. The
// context is cancelled when the scheduler stops.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every task keyed by the name used under
// scheduler.tasks in the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	deps.Logger = logger.OrNop(deps.Logger)

	tasks := map[string]ScheduledTaskFunc{
		config.TaskSQLMaintenance: newSQLMaintenanceTask(deps),
		config.TaskIngestStats:    newIngestStatsTask(deps),
	}

	deps.Logger.Debug("Initialized scheduled tasks", zap.Int("count", len(tasks)))
	return tasks
}
