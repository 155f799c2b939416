// Package chat provides a unified interface for chat frontends.
package chat

import (
	"context"
	"errors"
	"time"
)

// Message represents a normalized chat message from any frontend.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Sender    string // Display name of the sender.
	AvatarURL string // Sender's avatar, empty when the platform exposes none.
	Text      string
	IsCommand bool
	Command   string   // Command name without the leading slash, e.g. "stats".
	Args      []string // Whitespace-split command arguments.
	Timestamp time.Time
	Raw       any // underlying library message struct
}

// Reaction represents standard emoji reactions.
type Reaction string

// Reactions used to acknowledge processed links.
const (
	ReactionEyes      Reaction = "👀" // movie saved to the collection
	ReactionCheckmark Reaction = "✅" // movie was already in the collection
)

// ErrHistoryUnsupported is returned by frontends whose platform offers no
// way to fetch past messages.
var ErrHistoryUnsupported = errors.New("chat frontend does not support history retrieval")

// Frontend defines the unified interface for all chat integrations.
type Frontend interface {
	// Start initializes the chat frontend.
	Start(ctx context.Context) error

	// Listen blocks, delivering each incoming message to handler.
	Listen(ctx context.Context, handler func(*Message)) error

	// SendText sends a text message to the chat, optionally as a reply.
	// Returns the sent message's ID.
	SendText(ctx context.Context, chatID, replyToID, text string) (string, error)

	// React adds an emoji reaction to a message.
	React(ctx context.Context, chatID, msgID string, r Reaction) error

	// History returns up to limit past messages from the chat, newest
	// first. Frontends without history access return ErrHistoryUnsupported.
	History(ctx context.Context, chatID string, limit int) ([]Message, error)
}
