// Package tasks implements the bot's scheduled background tasks.
package tasks

import (
	"log/slog"

	"goalbot/internal/config"
	"goalbot/internal/database"
	"goalbot/internal/dialog"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Engine *dialog.Engine
	Config *config.Config
}
