// Package collector wires the ingestion loop and the maintenance scheduler
// into one process lifecycle.
package collector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/session"
	"github.com/edgard/tgcollector/internal/telegram"
)

// Ingester is the long-running update consumer. *ingest.Loop satisfies it.
type Ingester interface {
	Run(ctx context.Context) error
}

// App is the collector process.
type App struct {
	logger    *zap.Logger
	ingester  Ingester
	scheduler *Scheduler

	transport telegram.Transport
	sessions  *session.Manager
}

// Option configures an App.
type Option func(*App)

// WithIngester enables ingestion. Without it the app runs degraded: only the
// scheduler is active.
func WithIngester(ingester Ingester) Option {
	return func(a *App) { a.ingester = ingester }
}

// WithTransport hands the connected transport to the app, which persists its
// session through sessions and closes it on shutdown.
func WithTransport(t telegram.Transport, sessions *session.Manager) Option {
	return func(a *App) {
		a.transport = t
		a.sessions = sessions
	}
}

// NewApp returns an app driving scheduler and the given options.
func NewApp(log *zap.Logger, scheduler *Scheduler, opts ...Option) *App {
	a := &App{
		logger:    logger.OrNop(log).Named("collector"),
		scheduler: scheduler,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run blocks until ctx is cancelled or a component fails. The transport, if
// any, is persisted and closed before returning.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting collector")
	defer a.shutdownTransport()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if a.ingester == nil {
			a.logger.Warn("Telegram credentials missing, ingestion disabled; idling until terminated")
			<-gCtx.Done()
			return nil
		}

		err := a.ingester.Run(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("ingestion stopped: %w", err)
		}
		if gCtx.Err() == nil {
			return errors.New("ingestion stopped unexpectedly")
		}
		return nil
	})

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Start(gCtx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("Collector stopped due to error", zap.Error(err))
		return err
	}

	a.logger.Info("Collector stopped gracefully")
	return nil
}

func (a *App) shutdownTransport() {
	if a.transport == nil {
		return
	}
	if a.sessions != nil {
		a.sessions.Persist(a.transport)
	}
	if err := a.transport.Close(); err != nil {
		a.logger.Warn("Error closing transport", zap.Error(err))
	}
}
