// Package identity resolves Telegram chats to bot identities and manages
// verification codes used to link chats to application accounts.
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"goalbot/internal/database"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 6
)

// Service implements the identity resolver over the database store.
type Service struct {
	store  database.Store
	logger *slog.Logger
}

// NewService creates a new identity Service.
func NewService(store database.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "identity"),
	}
}

// ResolveOrCreate looks up the identity for chatID, creating one with a fresh
// verification code on first contact. The bool result reports whether the
// identity was created by this call.
func (s *Service) ResolveOrCreate(ctx context.Context, chatID int64) (*database.TgUser, bool, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate verification code: %w", err)
	}

	user, created, err := s.store.GetOrCreateTgUser(ctx, chatID, code)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.InfoContext(ctx, "New telegram identity created", "chat_id", chatID)
	}
	return user, created, nil
}

// IsLinked reports whether the identity has been linked to an application account.
func (s *Service) IsLinked(user *database.TgUser) bool {
	return user != nil && user.UserID.Valid
}

// RegenerateCode assigns a new random verification code to the identity,
// persists only that field, and updates the struct in place.
func (s *Service) RegenerateCode(ctx context.Context, user *database.TgUser) error {
	if user == nil {
		return fmt.Errorf("cannot regenerate code for nil identity")
	}

	code, err := GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	if err := s.store.UpdateVerificationCode(ctx, user.ChatID, code); err != nil {
		return err
	}

	user.VerificationCode.String = code
	user.VerificationCode.Valid = true

	s.logger.DebugContext(ctx, "Verification code regenerated", "chat_id", user.ChatID)
	return nil
}

// Link consumes a verification code and attaches the given account to the
// identity holding it. Returns database.ErrCodeNotFound when no unlinked
// identity holds the code.
func (s *Service) Link(ctx context.Context, code string, userID int64) (*database.TgUser, error) {
	user, err := s.store.LinkTgUser(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Account linked to telegram identity", "chat_id", user.ChatID, "user_id", userID)
	return user, nil
}

// GenerateCode returns a random 6-character code over the 62-symbol
// alphanumeric alphabet. Uniqueness is probabilistic; linking consumes codes
// on use, which closes the duplicate-code linking hazard.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
