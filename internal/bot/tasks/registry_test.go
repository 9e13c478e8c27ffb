package tasks_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"goalbot/internal/bot/tasks"
	"goalbot/internal/config"
	"goalbot/internal/database"
	"goalbot/internal/dialog"
	"goalbot/internal/identity"
)

type nopSender struct{}

func (nopSender) Send(context.Context, int64, string, [][]dialog.Button) error { return nil }

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			DialogTTL:           30 * time.Minute,
			ExpiryInterval:      time.Minute,
			MaintenanceInterval: 24 * time.Hour,
		},
	}
	store := database.NewStore(db, nil)
	ident := identity.NewService(store, nil)
	engine := dialog.NewEngine(nil, cfg, store, ident, nopSender{}, dialog.NewStateStore())

	deps := tasks.TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
		Engine: engine,
		Config: cfg,
	}

	jobs := tasks.RegisterAllTasks(deps)
	if len(jobs) != 2 {
		t.Fatalf("registered %d jobs, want 2", len(jobs))
	}

	want := map[string]time.Duration{
		"sql_maintenance": 24 * time.Hour,
		"dialog_expiry":   time.Minute,
	}
	for _, job := range jobs {
		interval, ok := want[job.Name]
		if !ok {
			t.Errorf("unexpected job %q", job.Name)
			continue
		}
		if job.Interval != interval {
			t.Errorf("job %q interval = %v, want %v", job.Name, job.Interval, interval)
		}
		if job.Run == nil {
			t.Errorf("job %q has no run function", job.Name)
			continue
		}
		if err := job.Run(context.Background()); err != nil {
			t.Errorf("job %q failed against an idle database: %v", job.Name, err)
		}
	}
}
