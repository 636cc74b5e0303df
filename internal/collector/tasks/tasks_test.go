package tasks

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edgard/tgcollector/internal/config"
	"github.com/edgard/tgcollector/internal/database"
	"github.com/edgard/tgcollector/internal/ingest"
)

type fakeStore struct {
	database.Store

	maintenanceErr error
	maintenanceRun int
	stats          *database.Stats
	statsErr       error
}

func (f *fakeStore) RunMaintenance(context.Context) error {
	f.maintenanceRun++
	return f.maintenanceErr
}

func (f *fakeStore) Stats(context.Context) (*database.Stats, error) {
	return f.stats, f.statsErr
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	tasks := RegisterAllTasks(TaskDeps{Store: &fakeStore{}})
	for _, name := range []string{config.TaskSQLMaintenance, config.TaskIngestStats} {
		if tasks[name] == nil {
			t.Errorf("task %q not registered", name)
		}
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	task := RegisterAllTasks(TaskDeps{Store: store})[config.TaskSQLMaintenance]
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if store.maintenanceRun != 1 {
		t.Errorf("RunMaintenance called %d times, want 1", store.maintenanceRun)
	}

	boom := errors.New("disk full")
	store.maintenanceErr = boom
	if err := task(context.Background()); !errors.Is(err, boom) {
		t.Errorf("task error = %v, want wrapped %v", err, boom)
	}
}

func TestIngestStatsTask(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	store := &fakeStore{stats: &database.Stats{Users: 2, Chats: 1, Messages: 5}}
	deps := TaskDeps{
		Logger:   zap.New(core),
		Store:    store,
		Counters: func() ingest.Counters { return ingest.Counters{Processed: 6, Stored: 5, Duplicates: 1} },
	}

	if err := RegisterAllTasks(deps)[config.TaskIngestStats](context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}

	entries := logs.FilterMessage("Collector statistics").All()
	if len(entries) != 1 {
		t.Fatalf("got %d statistics entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["messages"] != int64(5) || fields["processed"] != int64(6) || fields["duplicates"] != int64(1) {
		t.Errorf("fields = %v", fields)
	}
}

func TestIngestStatsTaskWithoutLoop(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	store := &fakeStore{stats: &database.Stats{}}
	task := RegisterAllTasks(TaskDeps{Logger: zap.New(core), Store: store})[config.TaskIngestStats]
	if err := task(context.Background()); err != nil {
		t.Fatalf("task error = %v", err)
	}
	if _, ok := logs.All()[0].ContextMap()["processed"]; ok {
		t.Error("counters logged without an ingestion loop")
	}

	store.statsErr = errors.New("locked")
	if err := task(context.Background()); err == nil {
		t.Error("task succeeded despite stats failure")
	}
}
