// Package main contains the entrypoint for the goalbot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goalbot/internal/api"
	"goalbot/internal/bot"
	"goalbot/internal/bot/tasks"
	"goalbot/internal/config"
	"goalbot/internal/database"
	"goalbot/internal/dialog"
	"goalbot/internal/identity"
	"goalbot/internal/logger"
	"goalbot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// transport, engine, scheduler, API), handles graceful shutdown, and returns
// an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	client, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.PollTimeout, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}

	ident := identity.NewService(store, log)
	states := dialog.NewStateStore()
	engine := dialog.NewEngine(log, cfg, store, ident, client, states)

	apiHandler := api.NewHandler(log, ident, client, cfg.Messages.LinkSuccess)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Engine: engine,
		Config: cfg,
	}
	sched := bot.NewScheduler(log, tasks.RegisterAllTasks(tDeps))

	app := bot.NewBot(log, cfg, db, store, client, engine, sched, apiHandler.Routes())

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
