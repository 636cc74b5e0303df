package collector

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/tgcollector/internal/collector/tasks"
	"github.com/edgard/tgcollector/internal/config"
	"github.com/edgard/tgcollector/internal/session"
	"github.com/edgard/tgcollector/internal/telegram"
)

type fakeIngester struct {
	err     error
	started chan struct{}
}

func (f *fakeIngester) Run(ctx context.Context) error {
	close(f.started)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

// closingTransport only records Session and Close; the app never polls it.
type closingTransport struct {
	telegram.Transport
	closed atomic.Bool
}

func (c *closingTransport) Session() ([]byte, error) { return []byte("auth-key"), nil }

func (c *closingTransport) Close() error {
	c.closed.Store(true)
	return nil
}

func newTestScheduler(t *testing.T, cfg config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) *Scheduler {
	t.Helper()
	s, err := NewScheduler(nil, cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestAppStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	ingester := &fakeIngester{started: make(chan struct{})}
	transport := &closingTransport{}
	store := session.NewFileStore(filepath.Join(t.TempDir(), "s.session"))
	manager := session.NewManager(store, "+15550000", nil, nil)

	app := NewApp(nil, newTestScheduler(t, config.SchedulerConfig{}, nil),
		WithIngester(ingester), WithTransport(transport, manager))

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	<-ingester.started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if !transport.closed.Load() {
		t.Error("transport not closed on shutdown")
	}
	env, err := store.Load()
	if err != nil {
		t.Fatalf("session not persisted on shutdown: %v", err)
	}
	if string(env.Data) != "auth-key" {
		t.Errorf("persisted data = %q, want %q", env.Data, "auth-key")
	}
}

func TestAppReturnsIngesterFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("database gone")
	app := NewApp(nil, nil, WithIngester(&fakeIngester{err: boom, started: make(chan struct{})}))

	if err := app.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestAppDegradedIdles(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := NewApp(nil, nil).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("degraded app returned before the context ended")
	}
}

func TestSchedulerRegistersEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"enabled":  {Enabled: true, Schedule: "0 0 4 * * *"},
		"disabled": {Enabled: false, Schedule: "0 0 4 * * *"},
		"unknown":  {Enabled: true, Schedule: "0 0 4 * * *"},
		"invalid":  {Enabled: true, Schedule: "not a cron"},
	}}
	s := newTestScheduler(t, cfg, map[string]tasks.ScheduledTaskFunc{
		"enabled":  noop,
		"disabled": noop,
		"invalid":  noop,
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() { _ = s.Stop() }()

	if got, want := s.Scheduled(), []string{"enabled"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Scheduled() = %v, want %v", got, want)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	cfg := config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}
	s := newTestScheduler(t, cfg, map[string]tasks.ScheduledTaskFunc{
		"tick": func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return ctx.Err()
		},
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Error("task did not run within 3s")
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
