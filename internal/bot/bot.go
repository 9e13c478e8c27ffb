// Package bot implements the core bot lifecycle: the sequential event loop,
// the background scheduler, and the linking API listener.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"goalbot/internal/config"
	"goalbot/internal/database"
	"goalbot/internal/dialog"
	"goalbot/internal/telegram"
)

// pollRetryDelay is how long the event loop waits before retrying after a
// failed poll, so a dead Telegram API doesn't spin the loop hot.
const pollRetryDelay = 5 * time.Second

// httpShutdownTimeout bounds the graceful drain of the linking API listener.
const httpShutdownTimeout = 5 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	client    *telegram.Client
	engine    *dialog.Engine
	scheduler *Scheduler
	apiSrv    *http.Server
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	store database.Store,
	client *telegram.Client,
	engine *dialog.Engine,
	scheduler *Scheduler,
	apiHandler http.Handler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		db:        db,
		store:     store,
		client:    client,
		engine:    engine,
		scheduler: scheduler,
		apiSrv: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: apiHandler,
		},
	}
}

// Run starts the event loop, scheduler, and API listener, handling graceful
// shutdown on context cancellation. It returns an error if any component
// fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting event loop...")
		err := b.eventLoop(gCtx)
		b.logger.Info("Event loop stopped.")
		return err
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting linking API listener...", "addr", b.apiSrv.Addr)
		if err := b.apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("Linking API listener failed", "error", err)
			return fmt.Errorf("linking API listener failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping linking API listener...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := b.apiSrv.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error stopping linking API listener", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

// eventLoop is the sequential consumer of the update stream: one poll at a
// time, one event at a time, each turn run to completion before the next.
// This ordering is what makes the unsynchronized dialog steps safe.
func (b *Bot) eventLoop(ctx context.Context) error {
	var cursor int64

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		events, next, err := b.client.Poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error("Failed to poll for updates", "cursor", cursor, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		cursor = next

		for _, ev := range events {
			if err := b.engine.HandleEvent(ctx, ev); err != nil {
				// The failed turn is abandoned; the next event starts fresh.
				b.logger.Error("Failed to process event", "chat_id", ev.Chat(), "error", err)
			}
		}
	}
}
