// Package telegram implements the transport client over the Telegram Bot API:
// cursor-driven long polling for inbound events and outbound message delivery
// with optional inline keyboards.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"goalbot/internal/dialog"
)

const defaultAPIServer = "https://api.telegram.org"

// pollSlack is added on top of the long-poll timeout for the HTTP request
// deadline, so the server side of the long poll always expires first.
const pollSlack = 10 * time.Second

// Client wraps the Telegram Bot API behind the narrow transport contract the
// dialog engine consumes. Outbound calls go through go-telegram/bot; the
// long poll is a direct getUpdates request because the library only exposes
// polling through its own dispatcher loop, which would break the sequential
// cursor-driven consumption the engine relies on.
type Client struct {
	bot         *bot.Bot
	httpc       *http.Client
	logger      *slog.Logger
	apiServer   string
	token       string
	pollTimeout time.Duration
}

// Option customizes the transport client.
type Option func(*Client)

// WithAPIServer overrides the Bot API server URL. Used by tests and for
// self-hosted Bot API servers.
func WithAPIServer(url string) Option {
	return func(c *Client) { c.apiServer = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient overrides the HTTP client used for the long poll.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// NewClient creates a new Telegram transport client.
func NewClient(token string, pollTimeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log := logger.With("component", "telegram_client")

	c := &Client{
		logger:      log,
		apiServer:   defaultAPIServer,
		token:       token,
		pollTimeout: pollTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpc == nil {
		c.httpc = &http.Client{Timeout: pollTimeout + pollSlack}
	}

	botOpts := []bot.Option{}
	if c.apiServer != defaultAPIServer {
		botOpts = append(botOpts, bot.WithServerURL(c.apiServer), bot.WithSkipGetMe())
	}
	b, err := bot.New(token, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	c.bot = b

	log.Info("Telegram bot instance created successfully")
	return c, nil
}

// getUpdatesResponse is the wire envelope of the getUpdates method.
type getUpdatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []*models.Update `json:"result"`
}

// getUpdates performs one long-poll request past offset and returns the raw
// updates in arrival order.
func (c *Client) getUpdates(ctx context.Context, offset int64) ([]*models.Update, error) {
	secs := int(c.pollTimeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", c.apiServer, c.token, secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.pollTimeout+pollSlack)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build getUpdates request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates request failed: %w", err)
	}
	raw, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}
	if closeErr != nil {
		c.logger.WarnContext(ctx, "Error closing getUpdates response body", "error", closeErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("getUpdates returned http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out getUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode getUpdates response: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("getUpdates rejected: %s", out.Description)
	}
	return out.Result, nil
}

// Poll long-polls for updates past cursor and maps them to inbound events.
// It returns the events in arrival order and the cursor to use on the next
// call; a correctly advancing cursor never sees the same update twice.
func (c *Client) Poll(ctx context.Context, cursor int64) ([]dialog.Event, int64, error) {
	updates, err := c.getUpdates(ctx, cursor)
	if err != nil {
		return nil, cursor, err
	}

	events := make([]dialog.Event, 0, len(updates))
	next := cursor
	for _, update := range updates {
		if update.ID >= next {
			next = update.ID + 1
		}

		switch {
		case update.Message != nil:
			events = append(events, dialog.MessageEvent{
				ChatID: update.Message.Chat.ID,
				Text:   update.Message.Text,
			})

		case update.CallbackQuery != nil:
			var chatID int64
			if update.CallbackQuery.Message.Message != nil {
				chatID = update.CallbackQuery.Message.Message.Chat.ID
			} else if update.CallbackQuery.Message.InaccessibleMessage != nil {
				chatID = update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
			} else {
				c.logger.WarnContext(ctx, "Dropping callback query without chat", "update_id", update.ID)
				continue
			}

			// Acknowledge the button press so the client stops the spinner.
			if _, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
			}); err != nil {
				c.logger.WarnContext(ctx, "Failed to answer callback query",
					"update_id", update.ID, "error", err)
			}

			events = append(events, dialog.CallbackEvent{
				ChatID: chatID,
				Token:  update.CallbackQuery.Data,
			})

		default:
			c.logger.DebugContext(ctx, "Skipping unsupported update type", "update_id", update.ID)
		}
	}

	return events, next, nil
}

// Send delivers a text message to a chat, optionally with an inline keyboard.
func (c *Client) Send(ctx context.Context, chatID int64, text string, keyboard [][]dialog.Button) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if len(keyboard) > 0 {
		params.ReplyMarkup = toInlineKeyboard(keyboard)
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		c.logger.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// toInlineKeyboard converts transport-neutral button rows to the Telegram
// inline keyboard markup.
func toInlineKeyboard(keyboard [][]dialog.Button) models.ReplyMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         b.Text,
				CallbackData: b.CallbackData,
				URL:          b.URL,
			})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
