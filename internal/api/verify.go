// Package api exposes the account-linking HTTP endpoint consumed by the
// account service after it has authenticated a user.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"goalbot/internal/database"
	"goalbot/internal/dialog"
	"goalbot/internal/identity"
)

// Handler serves the bot verification endpoint.
type Handler struct {
	logger     *slog.Logger
	ident      *identity.Service
	sender     dialog.Sender
	successMsg string
}

// NewHandler creates a new API handler. successMsg is sent to the linked chat
// after a successful verification.
func NewHandler(logger *slog.Logger, ident *identity.Service, sender dialog.Sender, successMsg string) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		logger:     logger.With("component", "api"),
		ident:      ident,
		sender:     sender,
		successMsg: successMsg,
	}
}

// Routes returns the HTTP mux for the linking API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/bot/verify", h.handleVerify)
	return mux
}

type verifyRequest struct {
	VerificationCode string `json:"verification_code"`
	UserID           int64  `json:"user_id"`
}

type verifyResponse struct {
	ChatID int64 `json:"tg_id"`
	UserID int64 `json:"user_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleVerify consumes a verification code and links the identity holding it
// to the supplied account, then notifies the chat.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.VerificationCode == "" || req.UserID == 0 {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "verification_code and user_id are required"})
		return
	}

	user, err := h.ident.Link(ctx, req.VerificationCode, req.UserID)
	switch {
	case errors.Is(err, database.ErrCodeNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "verification code not found"})
		return

	case err != nil:
		h.logger.ErrorContext(ctx, "Account linking failed", "user_id", req.UserID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if err := h.sender.Send(ctx, user.ChatID, h.successMsg, nil); err != nil {
		// Linking already succeeded; the missed notification is not worth a 5xx.
		h.logger.WarnContext(ctx, "Failed to notify chat about successful linking",
			"chat_id", user.ChatID, "error", err)
	}

	h.writeJSON(w, http.StatusOK, verifyResponse{
		ChatID: user.ChatID,
		UserID: user.UserID.Int64,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("Failed to encode response", "error", err)
	}
}
