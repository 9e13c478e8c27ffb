package tasks

import (
	"context"
)

// newDialogExpiryTask creates the scheduled task that clears creation dialogs
// abandoned longer than the configured TTL and notifies the affected chats.
func newDialogExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "dialog_expiry")

	return func(ctx context.Context) error {
		log.DebugContext(ctx, "Running dialog expiry sweep")
		deps.Engine.ExpireStale(ctx)
		return nil
	}
}
