package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"goalbot/internal/database"
)

// newTestStore creates a Store backed by a fresh in-memory SQLite database
// with all migrations applied.
func newTestStore(t *testing.T) (database.Store, *sqlx.DB) {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil), db
}

func TestGetOrCreateTgUser(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	user, created, err := store.GetOrCreateTgUser(ctx, 100, "Abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected identity to be created on first contact")
	}
	if user.ChatID != 100 {
		t.Errorf("chat_id = %d, want 100", user.ChatID)
	}
	if user.UserID.Valid {
		t.Error("fresh identity must not be linked to an account")
	}
	if !user.VerificationCode.Valid || user.VerificationCode.String != "Abc123" {
		t.Errorf("verification code = %+v, want Abc123", user.VerificationCode)
	}

	// Second resolve returns the existing row and ignores the new code.
	again, created, err := store.GetOrCreateTgUser(ctx, 100, "Zzz999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected identity to already exist on second contact")
	}
	if again.VerificationCode.String != "Abc123" {
		t.Errorf("verification code = %q, want the original Abc123", again.VerificationCode.String)
	}
}

func TestUpdateVerificationCode(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.GetOrCreateTgUser(ctx, 200, "first0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.UpdateVerificationCode(ctx, 200, "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _, err := store.GetOrCreateTgUser(ctx, 200, "unused")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.VerificationCode.String != "second" {
		t.Errorf("verification code = %q, want second", user.VerificationCode.String)
	}
}

func TestLinkTgUser(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	account, err := store.CreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := store.GetOrCreateTgUser(ctx, 300, "link01"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := store.LinkTgUser(ctx, "link01", account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ChatID != 300 {
		t.Errorf("linked chat_id = %d, want 300", user.ChatID)
	}
	if !user.UserID.Valid || user.UserID.Int64 != account.ID {
		t.Errorf("linked user_id = %+v, want %d", user.UserID, account.ID)
	}
	if user.VerificationCode.Valid {
		t.Error("verification code must be cleared on linking")
	}

	// The code is consumed; a second submission cannot link anything.
	if _, err := store.LinkTgUser(ctx, "link01", account.ID); !errors.Is(err, database.ErrCodeNotFound) {
		t.Errorf("relinking consumed code: err = %v, want ErrCodeNotFound", err)
	}

	if _, err := store.LinkTgUser(ctx, "nosuch", account.ID); !errors.Is(err, database.ErrCodeNotFound) {
		t.Errorf("unknown code: err = %v, want ErrCodeNotFound", err)
	}
}

func TestCreateBoardIsAtomicWithOwnerParticipant(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	account, err := store.CreateUser(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	board, participant, err := store.CreateBoard(ctx, account.ID, "Launch Plan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if board.ID == 0 {
		t.Error("board ID not assigned")
	}
	if participant.BoardID != board.ID {
		t.Errorf("participant board_id = %d, want %d", participant.BoardID, board.ID)
	}
	if participant.UserID != account.ID {
		t.Errorf("participant user_id = %d, want %d", participant.UserID, account.ID)
	}
	if participant.Role != database.RoleOwner {
		t.Errorf("participant role = %d, want owner (%d)", participant.Role, database.RoleOwner)
	}

	titles, err := store.ListWritableBoardTitles(ctx, account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Launch Plan" {
		t.Errorf("writable board titles = %v, want [Launch Plan]", titles)
	}
}

func TestListWritableBoardTitlesExcludesReaderRole(t *testing.T) {
	t.Parallel()

	store, db := newTestStore(t)
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, "owner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reader, err := store.CreateUser(ctx, "reader")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	board, _, err := store.CreateBoard(ctx, owner.ID, "Shared")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = db.Exec(
		`INSERT INTO board_participants (board_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, datetime('now'), datetime('now'))`,
		board.ID, reader.ID, database.RoleReader)
	if err != nil {
		t.Fatalf("failed to insert reader participant: %v", err)
	}

	titles, err := store.ListWritableBoardTitles(ctx, reader.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(titles) != 0 {
		t.Errorf("reader sees writable boards %v, want none", titles)
	}

	if got, err := store.GetWritableBoardByTitle(ctx, reader.ID, "Shared"); err != nil || got != nil {
		t.Errorf("GetWritableBoardByTitle for reader = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestListActiveGoalTitlesExcludesArchived(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	account, err := store.CreateUser(ctx, "carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	board, _, err := store.CreateBoard(ctx, account.ID, "Work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keep, err := store.CreateCategory(ctx, account.ID, board.ID, "Keep")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drop, err := store.CreateCategory(ctx, account.ID, board.ID, "Drop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.CreateGoal(ctx, account.ID, keep.ID, "Stays active"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateGoal(ctx, account.ID, drop.ID, "Gets archived"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Deleting the category archives its goals and hides the category.
	if err := store.DeleteCategory(ctx, drop.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	goals, err := store.ListActiveGoalTitles(ctx, account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(goals) != 1 || goals[0] != "Stays active" {
		t.Errorf("active goal titles = %v, want [Stays active]", goals)
	}

	categories, err := store.ListCategoryTitles(ctx, account.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || categories[0] != "Keep" {
		t.Errorf("category titles = %v, want [Keep]", categories)
	}

	if got, err := store.GetCategoryByTitle(ctx, account.ID, "Drop"); err != nil || got != nil {
		t.Errorf("GetCategoryByTitle for deleted category = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDeleteBoardCascades(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	account, err := store.CreateUser(ctx, "dave")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	board, _, err := store.CreateBoard(ctx, account.ID, "Doomed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	category, err := store.CreateCategory(ctx, account.ID, board.ID, "Inside")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateGoal(ctx, account.ID, category.ID, "Trapped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.DeleteBoard(ctx, board.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if titles, err := store.ListWritableBoardTitles(ctx, account.ID); err != nil || len(titles) != 0 {
		t.Errorf("writable boards after delete = (%v, %v), want none", titles, err)
	}
	if titles, err := store.ListCategoryTitles(ctx, account.ID); err != nil || len(titles) != 0 {
		t.Errorf("categories after board delete = (%v, %v), want none", titles, err)
	}
	if titles, err := store.ListActiveGoalTitles(ctx, account.ID); err != nil || len(titles) != 0 {
		t.Errorf("active goals after board delete = (%v, %v), want none", titles, err)
	}
}

func TestGetCategoryByTitleIsOwnerScoped(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateUser(ctx, "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.CreateUser(ctx, "second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	board, _, err := store.CreateBoard(ctx, first.ID, "Mine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.CreateCategory(ctx, first.ID, board.ID, "Books"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetCategoryByTitle(ctx, second.ID, "Books")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("category lookup must not cross account boundaries")
	}
}
