package dialog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"goalbot/internal/config"
	"goalbot/internal/database"
	"goalbot/internal/identity"
)

// handlerFunc is a command handler. For a direct command invocation both text
// and token are empty except when the message text is itself the command; for
// dialog continuation exactly one of them carries the user's input.
type handlerFunc func(ctx context.Context, user *database.TgUser, text, token string) error

// Engine routes inbound events to command handlers and drives the per-chat
// creation dialogs. All event processing is sequential; the engine never
// handles two events concurrently.
type Engine struct {
	logger *slog.Logger
	cfg    *config.Config
	store  database.Store
	ident  *identity.Service
	sender Sender
	states *StateStore
	now    func() time.Time
}

// NewEngine creates a new dialog Engine with its dependencies.
func NewEngine(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	ident *identity.Service,
	sender Sender,
	states *StateStore,
) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		logger: logger.With("component", "dialog_engine"),
		cfg:    cfg,
		store:  store,
		ident:  ident,
		sender: sender,
		states: states,
		now:    time.Now,
	}
}

// HandleEvent processes one inbound event to completion: identity resolution,
// verification gating, then command dispatch or dialog continuation. Store
// and transport failures abort the current turn and are returned to the caller.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) error {
	chatID := ev.Chat()
	log := e.logger.With("chat_id", chatID)

	user, created, err := e.ident.ResolveOrCreate(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to resolve identity for chat %d: %w", chatID, err)
	}

	if created {
		log.InfoContext(ctx, "Greeting new identity with verification code")
		greeting := fmt.Sprintf(e.cfg.Messages.Greeting, user.VerificationCode.String)
		return e.sender.Send(ctx, chatID, greeting, nil)
	}

	if !e.ident.IsLinked(user) {
		if err := e.ident.RegenerateCode(ctx, user); err != nil {
			return fmt.Errorf("failed to regenerate code for chat %d: %w", chatID, err)
		}
		log.InfoContext(ctx, "Re-sent verification instructions to unlinked identity")
		instructions := fmt.Sprintf(e.cfg.Messages.VerifyInstructions,
			e.cfg.Site.BaseURL, user.VerificationCode.String)
		return e.sender.Send(ctx, chatID, instructions, nil)
	}

	switch ev := ev.(type) {
	case MessageEvent:
		return e.routeMessage(ctx, user, ev.Text)
	case CallbackEvent:
		return e.routeCallback(ctx, user, ev.Token)
	default:
		log.WarnContext(ctx, "Dropping event of unknown type")
		return nil
	}
}

// routeMessage handles free text from a linked identity: a recognized command
// dispatches directly, otherwise the text continues any in-progress dialog,
// otherwise it is an unknown command.
func (e *Engine) routeMessage(ctx context.Context, user *database.TgUser, text string) error {
	if h := e.handlerFor(Command(strings.TrimSpace(text))); h != nil {
		return h(ctx, user, text, "")
	}

	if _, ok := e.states.Get(user.ChatID); ok {
		return e.continueDialog(ctx, user, text, "")
	}

	return e.sender.Send(ctx, user.ChatID, e.cfg.Messages.UnknownCommand, nil)
}

// routeCallback handles a button press from a linked identity: a token that is
// itself a command dispatches that command (this is how the [Cancel] button
// works), otherwise the token is dialog-continuation input.
func (e *Engine) routeCallback(ctx context.Context, user *database.TgUser, token string) error {
	if h := e.handlerFor(Command(token)); h != nil {
		return h(ctx, user, "", "")
	}

	if _, ok := e.states.Get(user.ChatID); ok {
		return e.continueDialog(ctx, user, "", token)
	}

	return e.sender.Send(ctx, user.ChatID, e.cfg.Messages.UnknownCommand, nil)
}

// continueDialog forwards input into the command handler that owns the chat's
// in-progress dialog, failing safe when the recorded command is unknown.
func (e *Engine) continueDialog(ctx context.Context, user *database.TgUser, text, token string) error {
	st, ok := e.states.Get(user.ChatID)
	if !ok {
		return e.sender.Send(ctx, user.ChatID, e.cfg.Messages.UnknownCommand, nil)
	}

	h := e.handlerFor(st.Command)
	if h == nil {
		e.logger.WarnContext(ctx, "Dialog state records unknown command",
			"chat_id", user.ChatID, "command", st.Command)
		return e.failDialog(ctx, user.ChatID)
	}
	return h(ctx, user, text, token)
}

// handlerFor returns the handler for a recognized command, or nil.
func (e *Engine) handlerFor(cmd Command) handlerFunc {
	switch cmd {
	case CmdGoals:
		return e.handleGoals
	case CmdCreate:
		return e.handleCreate
	case CmdCreateGoal:
		return e.handleCreateGoal
	case CmdCreateCat:
		return e.handleCreateCat
	case CmdCreateBoard:
		return e.handleCreateBoard
	case CmdCancel:
		return e.handleCancel
	default:
		return nil
	}
}

// failDialog clears the chat's dialog state and sends the generic
// recoverable-failure reply. Used for stale references and malformed state.
func (e *Engine) failDialog(ctx context.Context, chatID int64) error {
	e.states.Delete(chatID)
	return e.sender.Send(ctx, chatID, e.cfg.Messages.SomethingWrong, nil)
}

// handleGoals replies with the titles of the account's active goals. It
// ignores dialog state entirely.
func (e *Engine) handleGoals(ctx context.Context, user *database.TgUser, _, _ string) error {
	titles, err := e.store.ListActiveGoalTitles(ctx, user.UserID.Int64)
	if err != nil {
		return err
	}

	reply := e.cfg.Messages.NoActiveGoals
	if len(titles) > 0 {
		reply = e.cfg.Messages.GoalsHeader + strings.Join(titles, "\n")
	}
	return e.sender.Send(ctx, user.ChatID, reply, nil)
}

// handleCancel clears any dialog state for the chat and confirms. A no-op
// deletion still gets the confirmation, matching the command's idempotence.
func (e *Engine) handleCancel(ctx context.Context, user *database.TgUser, _, _ string) error {
	e.states.Delete(user.ChatID)
	return e.sender.Send(ctx, user.ChatID, e.cfg.Messages.Cancelled, nil)
}

// handleCreate is the generic creation entry point. With a dialog in progress
// it relays input to the recorded command's handler; otherwise it presents
// the three creation commands as buttons.
func (e *Engine) handleCreate(ctx context.Context, user *database.TgUser, text, token string) error {
	if _, ok := e.states.Get(user.ChatID); ok {
		return e.continueDialog(ctx, user, text, token)
	}

	keyboard := [][]Button{{
		{Text: "a goal", CallbackData: string(CmdCreateGoal)},
		{Text: "a category", CallbackData: string(CmdCreateCat)},
		{Text: "a board", CallbackData: string(CmdCreateBoard)},
	}}
	return e.sender.Send(ctx, user.ChatID, e.cfg.Messages.CreateWhat, keyboard)
}

// handleCreateGoal drives the goal-creation dialog: pick a category, then
// supply a title.
func (e *Engine) handleCreateGoal(ctx context.Context, user *database.TgUser, text, token string) error {
	chatID := user.ChatID
	st, inProgress := e.states.Get(chatID)

	switch {
	// Step 1: no dialog yet, offer the account's categories.
	case !inProgress:
		titles, err := e.store.ListCategoryTitles(ctx, user.UserID.Int64)
		if err != nil {
			return err
		}
		if len(titles) == 0 {
			return e.sender.Send(ctx, chatID, e.cfg.Messages.NoCategories, nil)
		}
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.ChooseCategory, selectionKeyboard(titles)); err != nil {
			return err
		}
		e.states.Start(chatID, CmdCreateGoal)
		return nil

	// Step 2: a button was pressed, record the category and ask for a title.
	case token != "":
		e.states.SetField(chatID, fieldParentTitle, token)
		return e.sender.Send(ctx, chatID, e.cfg.Messages.EnterGoalTitle, nil)

	// Step 3: category recorded, the text is the goal title. A non-text
	// update (sticker, photo) arrives as empty text and cannot be a title.
	case st.Fields[fieldParentTitle] != "":
		if text == "" {
			return e.failDialog(ctx, chatID)
		}

		category, err := e.store.GetCategoryByTitle(ctx, user.UserID.Int64, st.Fields[fieldParentTitle])
		if err != nil {
			return err
		}
		if category == nil {
			// Category deleted mid-dialog.
			return e.failDialog(ctx, chatID)
		}

		goal, err := e.store.CreateGoal(ctx, user.UserID.Int64, category.ID, text)
		if err != nil {
			return err
		}

		goalURL := fmt.Sprintf("%s/boards/%d/categories/%d/goals?goal=%d",
			e.cfg.Site.BaseURL, category.BoardID, category.ID, goal.ID)
		keyboard := [][]Button{{{Text: "View goal", URL: goalURL}}}
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.GoalCreated, keyboard); err != nil {
			return err
		}
		e.states.Delete(chatID)
		return nil

	default:
		return e.failDialog(ctx, chatID)
	}
}

// handleCreateCat drives the category-creation dialog: pick a writable board,
// then supply a title.
func (e *Engine) handleCreateCat(ctx context.Context, user *database.TgUser, text, token string) error {
	chatID := user.ChatID
	st, inProgress := e.states.Get(chatID)

	switch {
	// Step 1: no dialog yet, offer the boards the account may write to.
	case !inProgress:
		titles, err := e.store.ListWritableBoardTitles(ctx, user.UserID.Int64)
		if err != nil {
			return err
		}
		if len(titles) == 0 {
			return e.sender.Send(ctx, chatID, e.cfg.Messages.NoBoards, nil)
		}
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.ChooseBoard, selectionKeyboard(titles)); err != nil {
			return err
		}
		e.states.Start(chatID, CmdCreateCat)
		return nil

	// Step 2: a button was pressed, record the board and ask for a title.
	case token != "":
		e.states.SetField(chatID, fieldParentTitle, token)
		return e.sender.Send(ctx, chatID, e.cfg.Messages.EnterCategoryTitle, nil)

	// Step 3: board recorded, the text is the category title. A non-text
	// update arrives as empty text and cannot be a title.
	case st.Fields[fieldParentTitle] != "":
		if text == "" {
			return e.failDialog(ctx, chatID)
		}

		board, err := e.store.GetWritableBoardByTitle(ctx, user.UserID.Int64, st.Fields[fieldParentTitle])
		if err != nil {
			return err
		}
		if board == nil {
			// Board deleted mid-dialog.
			return e.failDialog(ctx, chatID)
		}

		category, err := e.store.CreateCategory(ctx, user.UserID.Int64, board.ID, text)
		if err != nil {
			return err
		}

		categoryURL := fmt.Sprintf("%s/boards/%d/categories/%d/goals",
			e.cfg.Site.BaseURL, board.ID, category.ID)
		keyboard := [][]Button{{{Text: "View category", URL: categoryURL}}}
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.CategoryCreated, keyboard); err != nil {
			return err
		}
		e.states.Delete(chatID)
		return nil

	default:
		return e.failDialog(ctx, chatID)
	}
}

// handleCreateBoard drives the board-creation dialog. Boards have no parent
// entity, so the dialog goes straight to the title prompt.
func (e *Engine) handleCreateBoard(ctx context.Context, user *database.TgUser, text, _ string) error {
	chatID := user.ChatID
	_, inProgress := e.states.Get(chatID)

	// Step 1: prompt for the title.
	if !inProgress {
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.EnterBoardTitle, nil); err != nil {
			return err
		}
		e.states.Start(chatID, CmdCreateBoard)
		return nil
	}

	// Step 2: the text is the board title. A callback here is malformed input.
	if text == "" {
		return e.failDialog(ctx, chatID)
	}

	board, _, err := e.store.CreateBoard(ctx, user.UserID.Int64, text)
	if err != nil {
		return err
	}

	boardURL := fmt.Sprintf("%s/boards/%d/goals", e.cfg.Site.BaseURL, board.ID)
	keyboard := [][]Button{{{Text: "View board", URL: boardURL}}}
	if err := e.sender.Send(ctx, chatID, e.cfg.Messages.BoardCreated, keyboard); err != nil {
		return err
	}
	e.states.Delete(chatID)
	return nil
}

// ExpireStale clears dialogs idle longer than the configured TTL and tells
// each affected chat the creation timed out. Invoked by the scheduler.
func (e *Engine) ExpireStale(ctx context.Context) {
	cutoff := e.now().Add(-e.cfg.Scheduler.DialogTTL)
	expired := e.states.ExpireBefore(cutoff)
	if len(expired) == 0 {
		return
	}

	e.logger.InfoContext(ctx, "Expired stale creation dialogs", "count", len(expired))
	for _, chatID := range expired {
		if err := e.sender.Send(ctx, chatID, e.cfg.Messages.DialogExpired, nil); err != nil {
			e.logger.WarnContext(ctx, "Failed to notify chat about expired dialog",
				"chat_id", chatID, "error", err)
		}
	}
}

// selectionKeyboard builds one button row per candidate title, keyed by the
// title, with a trailing [Cancel] row.
func selectionKeyboard(titles []string) [][]Button {
	keyboard := make([][]Button, 0, len(titles)+1)
	for _, title := range titles {
		keyboard = append(keyboard, []Button{{Text: title, CallbackData: title}})
	}
	keyboard = append(keyboard, []Button{{Text: "[Cancel]", CallbackData: string(CmdCancel)}})
	return keyboard
}
