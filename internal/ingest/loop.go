// Package ingest drives the transport's update stream into the normalizer.
package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/logger"
	"github.com/edgard/tgcollector/internal/normalize"
	"github.com/edgard/tgcollector/internal/telegram"
)

// Defaults for Config fields left at zero.
const (
	DefaultPollTimeout = 10 * time.Second
	DefaultErrorDelay  = time.Second
)

// Source yields updates one at a time. telegram.Transport satisfies it.
type Source interface {
	NextUpdate(ctx context.Context, timeout time.Duration) (*telegram.Update, error)
}

// Processor handles one update synchronously. *normalize.Normalizer satisfies it.
type Processor interface {
	Process(ctx context.Context, update *telegram.Update) normalize.Result
}

// Config tunes the loop.
type Config struct {
	PollTimeout time.Duration
	ErrorDelay  time.Duration
}

// Counters is a snapshot of what the loop has seen since it started.
type Counters struct {
	Processed       int64
	Stored          int64
	Duplicates      int64
	Failed          int64
	Skipped         int64
	TransportErrors int64
}

// Loop polls a Source and hands every update to a Processor, one at a time.
type Loop struct {
	source    Source
	processor Processor
	cfg       Config
	logger    *zap.Logger

	processed       atomic.Int64
	stored          atomic.Int64
	duplicates      atomic.Int64
	failed          atomic.Int64
	skipped         atomic.Int64
	transportErrors atomic.Int64
}

// NewLoop returns a loop reading from source.
func NewLoop(source Source, processor Processor, cfg Config, log *zap.Logger) *Loop {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = DefaultErrorDelay
	}
	return &Loop{
		source:    source,
		processor: processor,
		cfg:       cfg,
		logger:    logger.OrNop(log).Named("ingest"),
	}
}

// Run polls until ctx is cancelled. A poll timeout is the idle heartbeat and
// is ignored; any other read error is logged and retried after ErrorDelay.
// Run returns only ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Listening for updates",
		zap.Duration("poll_timeout", l.cfg.PollTimeout), zap.Duration("error_delay", l.cfg.ErrorDelay))

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("Ingestion stopped", zap.Int64("processed", l.processed.Load()))
			return err
		}

		update, err := l.source.NextUpdate(ctx, l.cfg.PollTimeout)
		switch {
		case err == nil:
			l.handle(ctx, update)
		case errors.Is(err, telegram.ErrTimeout):
			continue
		case ctx.Err() != nil:
			continue
		default:
			l.transportErrors.Add(1)
			l.logger.Warn("Failed to receive update", zap.Error(err))
			l.pause(ctx)
		}
	}
}

// Counters returns a snapshot of the loop's counters. Safe for concurrent use.
func (l *Loop) Counters() Counters {
	return Counters{
		Processed:       l.processed.Load(),
		Stored:          l.stored.Load(),
		Duplicates:      l.duplicates.Load(),
		Failed:          l.failed.Load(),
		Skipped:         l.skipped.Load(),
		TransportErrors: l.transportErrors.Load(),
	}
}

func (l *Loop) handle(ctx context.Context, update *telegram.Update) {
	result := l.processor.Process(ctx, update)
	l.processed.Add(1)

	switch result {
	case normalize.ResultStored:
		l.stored.Add(1)
	case normalize.ResultDuplicate:
		l.duplicates.Add(1)
	case normalize.ResultFailed, normalize.ResultChatFailed:
		l.failed.Add(1)
	case normalize.ResultSkipped:
		l.skipped.Add(1)
	}
}

func (l *Loop) pause(ctx context.Context) {
	timer := time.NewTimer(l.cfg.ErrorDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
