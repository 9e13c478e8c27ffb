// Package dialog implements the conversation engine: inbound event routing,
// per-chat creation dialogs, and the state store backing them.
package dialog

import "context"

// Event is an inbound chat event produced by the transport client.
// It is either a MessageEvent or a CallbackEvent.
type Event interface {
	Chat() int64
}

// MessageEvent is a free-text message from a chat.
type MessageEvent struct {
	ChatID int64
	Text   string
}

// Chat returns the originating chat identifier.
func (e MessageEvent) Chat() int64 { return e.ChatID }

// CallbackEvent is a button press from a chat, carrying the opaque token the
// button was sent with.
type CallbackEvent struct {
	ChatID int64
	Token  string
}

// Chat returns the originating chat identifier.
func (e CallbackEvent) Chat() int64 { return e.ChatID }

// Button is one interactive button in an outbound message. Exactly one of
// CallbackData or URL should be set.
type Button struct {
	Text         string
	CallbackData string
	URL          string
}

// Sender delivers outbound messages, optionally with an inline keyboard of
// button rows. Implemented by the telegram transport client.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, keyboard [][]Button) error
}
