// Package tasks implements the collector's scheduled tasks and their registry.
package tasks

import (
	"go.uber.org/zap"

	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/ingest"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *zap.Logger
	Store  database.Store
	// Counters reports the ingestion loop's counters. Nil when ingestion is
	// disabled.
	Counters func() ingest.Counters
}
