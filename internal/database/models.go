package database

import (
	"database/sql"
	"time"
)

// Board participant roles. Owner and Writer may create categories on a board.
const (
	RoleOwner  = 1
	RoleWriter = 2
	RoleReader = 3
)

// Goal statuses. Archived goals are excluded from active listings.
const (
	StatusToDo       = 1
	StatusInProgress = 2
	StatusDone       = 3
	StatusArchived   = 4
)

// Goal priorities.
const (
	PriorityLow      = 1
	PriorityMedium   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

// User represents an application account. Accounts are registered through the
// external account service; this table exists so ownership scoping and the
// linking flow operate on real foreign keys.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// TgUser links a Telegram chat to an application account. A freshly created
// row carries a verification code and no account; linking sets user_id and
// clears the code.
type TgUser struct {
	ChatID           int64          `db:"chat_id"`
	UserID           sql.NullInt64  `db:"user_id"`
	VerificationCode sql.NullString `db:"verification_code"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Board is the top-level grouping for categories and goals.
type Board struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BoardParticipant grants a user a role on a board. (board_id, user_id) is unique.
type BoardParticipant struct {
	ID        int64     `db:"id"`
	BoardID   int64     `db:"board_id"`
	UserID    int64     `db:"user_id"`
	Role      int       `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GoalCategory groups goals inside a board. Soft-deleted via is_deleted.
type GoalCategory struct {
	ID        int64     `db:"id"`
	BoardID   int64     `db:"board_id"`
	UserID    int64     `db:"user_id"`
	Title     string    `db:"title"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Goal is a single tracked goal. Deleting a category or board archives its goals.
type Goal struct {
	ID          int64        `db:"id"`
	CategoryID  int64        `db:"category_id"`
	UserID      int64        `db:"user_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Status      int          `db:"status"`
	Priority    int          `db:"priority"`
	DueDate     sql.NullTime `db:"due_date"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}
