package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrCodeNotFound is returned by LinkTgUser when no unlinked identity holds
// the supplied verification code.
var ErrCodeNotFound = errors.New("verification code not found")

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetOrCreateTgUser looks up the identity for chatID, inserting a new row
	// with the supplied verification code when none exists. The bool result
	// reports whether the row was created by this call.
	GetOrCreateTgUser(ctx context.Context, chatID int64, code string) (*TgUser, bool, error)

	// UpdateVerificationCode persists a new verification code for chatID,
	// touching only that column.
	UpdateVerificationCode(ctx context.Context, chatID int64, code string) error

	// LinkTgUser finds the unlinked identity holding code, attaches userID to
	// it, and clears the code, all in one transaction. Returns ErrCodeNotFound
	// when no unlinked identity holds the code.
	LinkTgUser(ctx context.Context, code string, userID int64) (*TgUser, error)

	// CreateUser inserts a new application account.
	CreateUser(ctx context.Context, username string) (*User, error)

	// CreateGoal inserts a goal owned by userID under the given category.
	CreateGoal(ctx context.Context, userID, categoryID int64, title string) (*Goal, error)

	// CreateCategory inserts a category owned by userID on the given board.
	CreateCategory(ctx context.Context, userID, boardID int64, title string) (*GoalCategory, error)

	// CreateBoard inserts a board and an owner participant for userID in a
	// single transaction; both rows become visible together or not at all.
	CreateBoard(ctx context.Context, userID int64, title string) (*Board, *BoardParticipant, error)

	// ListActiveGoalTitles returns titles of userID's non-archived goals.
	ListActiveGoalTitles(ctx context.Context, userID int64) ([]string, error)

	// ListCategoryTitles returns titles of userID's non-deleted categories.
	ListCategoryTitles(ctx context.Context, userID int64) ([]string, error)

	// ListWritableBoardTitles returns titles of non-deleted boards where
	// userID holds the owner or writer role.
	ListWritableBoardTitles(ctx context.Context, userID int64) ([]string, error)

	// GetCategoryByTitle returns userID's non-deleted category with the given
	// title, or nil, nil when absent.
	GetCategoryByTitle(ctx context.Context, userID int64, title string) (*GoalCategory, error)

	// GetWritableBoardByTitle returns the non-deleted board with the given
	// title where userID holds the owner or writer role, or nil, nil when absent.
	GetWritableBoardByTitle(ctx context.Context, userID int64, title string) (*Board, error)

	// DeleteBoard soft-deletes a board, soft-deletes its categories, and
	// archives their goals in a single transaction.
	DeleteBoard(ctx context.Context, boardID int64) error

	// DeleteCategory soft-deletes a category and archives its goals in a
	// single transaction.
	DeleteCategory(ctx context.Context, categoryID int64) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rollback is the shared deferred-rollback helper for transactional methods.
// Rolling back an already-committed transaction is a no-op.
func (s *sqlxStore) rollback(ctx context.Context, tx *sqlx.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", err)
	}
}

// GetOrCreateTgUser looks up the identity for chatID, inserting a new row with
// the supplied verification code when none exists.
func (s *sqlxStore) GetOrCreateTgUser(ctx context.Context, chatID int64, code string) (*TgUser, bool, error) {
	if chatID == 0 {
		return nil, false, fmt.Errorf("chat_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	var user TgUser
	query := `SELECT chat_id, user_id, verification_code, created_at, updated_at
	          FROM tg_users WHERE chat_id = ?`

	err := s.db.GetContext(ctx, &user, query, chatID)
	switch {
	case err == nil:
		return &user, false, nil

	case errors.Is(err, sql.ErrNoRows):
		// First contact from this chat, fall through to the insert.

	default:
		s.logger.ErrorContext(ctx, "Error getting tg user", "chat_id", chatID, "error", err)
		return nil, false, fmt.Errorf("failed to get tg user for chat %d: %w", chatID, err)
	}

	now := time.Now().UTC()
	user = TgUser{
		ChatID:           chatID,
		VerificationCode: sql.NullString{String: code, Valid: true},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	insert := `INSERT INTO tg_users (chat_id, user_id, verification_code, created_at, updated_at)
	           VALUES (:chat_id, :user_id, :verification_code, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, insert, &user); err != nil {
		s.logger.ErrorContext(ctx, "Error creating tg user", "chat_id", chatID, "error", err)
		return nil, false, fmt.Errorf("failed to create tg user for chat %d: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Created tg user", "chat_id", chatID)
	return &user, true, nil
}

// UpdateVerificationCode persists a new verification code for chatID.
func (s *sqlxStore) UpdateVerificationCode(ctx context.Context, chatID int64, code string) error {
	if chatID == 0 {
		return fmt.Errorf("chat_id cannot be zero")
	}
	if code == "" {
		return fmt.Errorf("verification code cannot be empty")
	}

	query := `UPDATE tg_users SET verification_code = ?, updated_at = ? WHERE chat_id = ?`
	result, err := s.db.ExecContext(ctx, query, code, time.Now().UTC(), chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating verification code", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to update verification code for chat %d: %w", chatID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when updating verification code",
			"chat_id", chatID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Updated verification code", "chat_id", chatID)
	return nil
}

// LinkTgUser finds the unlinked identity holding code, attaches userID to it,
// and clears the code. The code is consumed inside the transaction so a second
// submission of the same string cannot link a different account.
func (s *sqlxStore) LinkTgUser(ctx context.Context, code string, userID int64) (*TgUser, error) {
	if code == "" {
		return nil, fmt.Errorf("verification code cannot be empty")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for account linking", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	var user TgUser
	query := `SELECT chat_id, user_id, verification_code, created_at, updated_at
	          FROM tg_users
	          WHERE verification_code = ? AND user_id IS NULL
	          ORDER BY chat_id
	          LIMIT 1`

	err = tx.GetContext(ctx, &user, query, code)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No unlinked identity holds verification code")
		return nil, ErrCodeNotFound

	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up verification code", "error", err)
		return nil, fmt.Errorf("failed to look up verification code: %w", err)
	}

	user.UserID = sql.NullInt64{Int64: userID, Valid: true}
	user.VerificationCode = sql.NullString{}
	user.UpdatedAt = time.Now().UTC()

	update := `UPDATE tg_users
	           SET user_id = :user_id, verification_code = NULL, updated_at = :updated_at
	           WHERE chat_id = :chat_id`
	if _, err := tx.NamedExecContext(ctx, update, &user); err != nil {
		s.logger.ErrorContext(ctx, "Error linking tg user", "chat_id", user.ChatID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to link tg user for chat %d: %w", user.ChatID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit account linking transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Linked telegram identity to account", "chat_id", user.ChatID, "user_id", userID)
	return &user, nil
}

// CreateUser inserts a new application account.
func (s *sqlxStore) CreateUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	now := time.Now().UTC()
	user := &User{
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO users (username, password_hash, created_at, updated_at)
	          VALUES (:username, :password_hash, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, query, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating user", "username", username, "error", err)
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		user.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating user",
			"username", username, "error", err)
	}

	s.logger.DebugContext(ctx, "User created", "username", username, "user_id", user.ID)
	return user, nil
}

// CreateGoal inserts a goal owned by userID under the given category.
func (s *sqlxStore) CreateGoal(ctx context.Context, userID, categoryID int64, title string) (*Goal, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if categoryID == 0 {
		return nil, fmt.Errorf("category_id cannot be zero")
	}
	if title == "" {
		return nil, fmt.Errorf("goal title cannot be empty")
	}

	now := time.Now().UTC()
	goal := &Goal{
		CategoryID: categoryID,
		UserID:     userID,
		Title:      title,
		Status:     StatusToDo,
		Priority:   PriorityMedium,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `INSERT INTO goals (category_id, user_id, title, description, status, priority, due_date, created_at, updated_at)
	          VALUES (:category_id, :user_id, :title, :description, :status, :priority, :due_date, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, query, goal)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating goal", "user_id", userID, "category_id", categoryID, "error", err)
		return nil, fmt.Errorf("failed to create goal for user %d: %w", userID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		goal.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating goal",
			"user_id", userID, "error", err)
	}

	s.logger.DebugContext(ctx, "Goal created", "goal_id", goal.ID, "user_id", userID, "category_id", categoryID)
	return goal, nil
}

// CreateCategory inserts a category owned by userID on the given board.
func (s *sqlxStore) CreateCategory(ctx context.Context, userID, boardID int64, title string) (*GoalCategory, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if boardID == 0 {
		return nil, fmt.Errorf("board_id cannot be zero")
	}
	if title == "" {
		return nil, fmt.Errorf("category title cannot be empty")
	}

	now := time.Now().UTC()
	category := &GoalCategory{
		BoardID:   boardID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO goal_categories (board_id, user_id, title, is_deleted, created_at, updated_at)
	          VALUES (:board_id, :user_id, :title, :is_deleted, :created_at, :updated_at)`
	result, err := s.db.NamedExecContext(ctx, query, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating category", "user_id", userID, "board_id", boardID, "error", err)
		return nil, fmt.Errorf("failed to create category for user %d: %w", userID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		category.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating category",
			"user_id", userID, "error", err)
	}

	s.logger.DebugContext(ctx, "Category created", "category_id", category.ID, "user_id", userID, "board_id", boardID)
	return category, nil
}

// CreateBoard inserts a board and an owner participant for userID in a single
// transaction; both rows become visible together or not at all.
func (s *sqlxStore) CreateBoard(ctx context.Context, userID int64, title string) (*Board, *BoardParticipant, error) {
	if userID == 0 {
		return nil, nil, fmt.Errorf("user_id cannot be zero")
	}
	if title == "" {
		return nil, nil, fmt.Errorf("board title cannot be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for board creation", "user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	now := time.Now().UTC()
	board := &Board{
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	boardQuery := `INSERT INTO boards (title, is_deleted, created_at, updated_at)
	               VALUES (:title, :is_deleted, :created_at, :updated_at)`
	boardResult, err := tx.NamedExecContext(ctx, boardQuery, board)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating board", "user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("failed to create board for user %d: %w", userID, err)
	}
	if board.ID, err = boardResult.LastInsertId(); err != nil {
		s.logger.ErrorContext(ctx, "Could not retrieve board ID after insert", "user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("failed to get created board ID: %w", err)
	}

	participant := &BoardParticipant{
		BoardID:   board.ID,
		UserID:    userID,
		Role:      RoleOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	participantQuery := `INSERT INTO board_participants (board_id, user_id, role, created_at, updated_at)
	                     VALUES (:board_id, :user_id, :role, :created_at, :updated_at)`
	participantResult, err := tx.NamedExecContext(ctx, participantQuery, participant)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating board participant", "board_id", board.ID, "user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("failed to create owner participant for board %d: %w", board.ID, err)
	}
	if id, err := participantResult.LastInsertId(); err == nil {
		participant.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve participant ID after insert",
			"board_id", board.ID, "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit board creation transaction",
			"user_id", userID, "error", err)
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Board created with owner participant",
		"board_id", board.ID, "participant_id", participant.ID, "user_id", userID)
	return board, participant, nil
}

// ListActiveGoalTitles returns titles of userID's non-archived goals.
func (s *sqlxStore) ListActiveGoalTitles(ctx context.Context, userID int64) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var titles []string
	query := `SELECT title FROM goals
	          WHERE user_id = ? AND status != ?
	          ORDER BY id`

	if err := s.db.SelectContext(ctx, &titles, query, userID, StatusArchived); err != nil {
		s.logger.ErrorContext(ctx, "Error listing active goal titles", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list active goals for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Listed active goal titles", "user_id", userID, "count", len(titles))
	return titles, nil
}

// ListCategoryTitles returns titles of userID's non-deleted categories.
func (s *sqlxStore) ListCategoryTitles(ctx context.Context, userID int64) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var titles []string
	query := `SELECT title FROM goal_categories
	          WHERE user_id = ? AND is_deleted = 0
	          ORDER BY id`

	if err := s.db.SelectContext(ctx, &titles, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing category titles", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list categories for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Listed category titles", "user_id", userID, "count", len(titles))
	return titles, nil
}

// ListWritableBoardTitles returns titles of non-deleted boards where userID
// holds the owner or writer role.
func (s *sqlxStore) ListWritableBoardTitles(ctx context.Context, userID int64) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var titles []string
	query := `SELECT b.title FROM boards b
	          JOIN board_participants p ON p.board_id = b.id
	          WHERE p.user_id = ? AND p.role IN (?, ?) AND b.is_deleted = 0
	          ORDER BY b.id`

	if err := s.db.SelectContext(ctx, &titles, query, userID, RoleOwner, RoleWriter); err != nil {
		s.logger.ErrorContext(ctx, "Error listing writable board titles", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list writable boards for user %d: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Listed writable board titles", "user_id", userID, "count", len(titles))
	return titles, nil
}

// GetCategoryByTitle returns userID's non-deleted category with the given
// title, or nil, nil when absent.
func (s *sqlxStore) GetCategoryByTitle(ctx context.Context, userID int64, title string) (*GoalCategory, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if title == "" {
		return nil, fmt.Errorf("category title cannot be empty")
	}

	var category GoalCategory
	query := `SELECT id, board_id, user_id, title, is_deleted, created_at, updated_at
	          FROM goal_categories
	          WHERE user_id = ? AND title = ? AND is_deleted = 0
	          ORDER BY id
	          LIMIT 1`

	err := s.db.GetContext(ctx, &category, query, userID, title)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No category found by title", "user_id", userID, "title", title)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting category by title", "user_id", userID, "title", title, "error", err)
		return nil, fmt.Errorf("failed to get category %q for user %d: %w", title, userID, err)
	}

	return &category, nil
}

// GetWritableBoardByTitle returns the non-deleted board with the given title
// where userID holds the owner or writer role, or nil, nil when absent.
func (s *sqlxStore) GetWritableBoardByTitle(ctx context.Context, userID int64, title string) (*Board, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user_id cannot be zero")
	}
	if title == "" {
		return nil, fmt.Errorf("board title cannot be empty")
	}

	var board Board
	query := `SELECT b.id, b.title, b.is_deleted, b.created_at, b.updated_at
	          FROM boards b
	          JOIN board_participants p ON p.board_id = b.id
	          WHERE p.user_id = ? AND p.role IN (?, ?) AND b.title = ? AND b.is_deleted = 0
	          ORDER BY b.id
	          LIMIT 1`

	err := s.db.GetContext(ctx, &board, query, userID, RoleOwner, RoleWriter, title)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No writable board found by title", "user_id", userID, "title", title)
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting board by title", "user_id", userID, "title", title, "error", err)
		return nil, fmt.Errorf("failed to get board %q for user %d: %w", title, userID, err)
	}

	return &board, nil
}

// DeleteBoard soft-deletes a board, soft-deletes its categories, and archives
// their goals in a single transaction.
func (s *sqlxStore) DeleteBoard(ctx context.Context, boardID int64) error {
	if boardID == 0 {
		return fmt.Errorf("board_id cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for board deletion", "board_id", boardID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE boards SET is_deleted = 1, updated_at = ? WHERE id = ?`, now, boardID); err != nil {
		s.logger.ErrorContext(ctx, "Error soft-deleting board", "board_id", boardID, "error", err)
		return fmt.Errorf("failed to delete board %d: %w", boardID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goal_categories SET is_deleted = 1, updated_at = ? WHERE board_id = ?`, now, boardID); err != nil {
		s.logger.ErrorContext(ctx, "Error soft-deleting board categories", "board_id", boardID, "error", err)
		return fmt.Errorf("failed to delete categories of board %d: %w", boardID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET status = ?, updated_at = ?
		 WHERE category_id IN (SELECT id FROM goal_categories WHERE board_id = ?)`,
		StatusArchived, now, boardID); err != nil {
		s.logger.ErrorContext(ctx, "Error archiving board goals", "board_id", boardID, "error", err)
		return fmt.Errorf("failed to archive goals of board %d: %w", boardID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit board deletion transaction", "board_id", boardID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Board soft-deleted with cascades", "board_id", boardID)
	return nil
}

// DeleteCategory soft-deletes a category and archives its goals in a single
// transaction.
func (s *sqlxStore) DeleteCategory(ctx context.Context, categoryID int64) error {
	if categoryID == 0 {
		return fmt.Errorf("category_id cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for category deletion", "category_id", categoryID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { s.rollback(ctx, tx) }()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE goal_categories SET is_deleted = 1, updated_at = ? WHERE id = ?`, now, categoryID); err != nil {
		s.logger.ErrorContext(ctx, "Error soft-deleting category", "category_id", categoryID, "error", err)
		return fmt.Errorf("failed to delete category %d: %w", categoryID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET status = ?, updated_at = ? WHERE category_id = ?`,
		StatusArchived, now, categoryID); err != nil {
		s.logger.ErrorContext(ctx, "Error archiving category goals", "category_id", categoryID, "error", err)
		return fmt.Errorf("failed to archive goals of category %d: %w", categoryID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit category deletion transaction", "category_id", categoryID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Category soft-deleted with archived goals", "category_id", categoryID)
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
// VACUUM must run outside a transaction in SQLite.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
