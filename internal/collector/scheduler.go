package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/collector/tasks"
	"github.com/edgard/tgcollector/internal/config"
	"github.com/edgard/tgcollector/internal/logger"
)

// Scheduler runs the enabled maintenance tasks on their cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	cfg       config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	scheduled []string
}

// NewScheduler creates a scheduler for the tasks in taskMap.
func NewScheduler(log *zap.Logger, cfg config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	log = logger.OrNop(log).Named("scheduler")

	s, err := gocron.NewScheduler(gocron.WithLogger(logger.NewGocronLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start registers every enabled task and starts ticking. Tasks receive a
// context derived from ctx that is cancelled by Stop. A task with an invalid
// schedule is logged and skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler is already running")
	}

	taskCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.scheduled = s.scheduled[:0]

	for taskName, taskConfig := range s.cfg.Tasks {
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", zap.String("task_name", taskName))
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", zap.String("task_name", taskName))
			continue
		}

		_, err := s.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(func() {
				s.logger.Debug("Running scheduled task", zap.String("task_name", taskName))
				start := time.Now()
				if taskErr := taskFunc(taskCtx); taskErr != nil {
					s.logger.Error("Scheduled task failed", zap.String("task_name", taskName), zap.Error(taskErr))
				}
				s.logger.Debug("Finished scheduled task",
					zap.String("task_name", taskName), zap.Duration("duration", time.Since(start)))
			}),
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.logger.Error("Failed to schedule task",
				zap.String("task_name", taskName), zap.String("schedule", taskConfig.Schedule), zap.Error(err))
			continue
		}

		s.logger.Info("Scheduled task", zap.String("task_name", taskName), zap.String("schedule", taskConfig.Schedule))
		s.scheduled = append(s.scheduled, taskName)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", zap.Int("tasks_scheduled", len(s.scheduled)))
	return nil
}

// Scheduled returns the names of the tasks registered by Start, sorted.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := append([]string(nil), s.scheduled...)
	sort.Strings(names)
	return names
}

// Stop cancels running tasks and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()
	err := s.scheduler.Shutdown()
	s.running = false
	if err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	s.logger.Info("Scheduler stopped")
	return nil
}
