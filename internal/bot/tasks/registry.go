package tasks

import (
	"context"
	"time"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Job pairs a task with its run interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      ScheduledTaskFunc
}

// RegisterAllTasks initializes and returns the bot's scheduled jobs with
// intervals taken from configuration.
func RegisterAllTasks(deps TaskDeps) []Job {
	jobs := []Job{
		{
			Name:     "sql_maintenance",
			Interval: deps.Config.Scheduler.MaintenanceInterval,
			Run:      newSQLMaintenanceTask(deps),
		},
		{
			Name:     "dialog_expiry",
			Interval: deps.Config.Scheduler.ExpiryInterval,
			Run:      newDialogExpiryTask(deps),
		},
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(jobs))
	return jobs
}
