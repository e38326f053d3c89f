// Package transport defines the messaging primitives the conversation and
// review engines depend on. Handlers talk to Telegram through this interface
// so the engines stay testable without a live bot.
package transport

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// EditResult distinguishes the "already in desired state" success case from a
// genuine edit failure, so callers never have to string-match error text.
type EditResult int

const (
	// EditApplied means the message content was changed.
	EditApplied EditResult = iota
	// EditNotModified means the message already had the desired content.
	// It is a success, not an error.
	EditNotModified
)

// Attachment references a media file stored on the transport side.
type Attachment struct {
	FileID  string
	Caption string
}

// Messenger exposes the outbound primitives used by flows and review.
// The context carries correlation metadata for logging only; call deadlines
// are owned by the underlying HTTP client.
type Messenger interface {
	// Send delivers a new message and returns its identifier.
	Send(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (int, error)
	// SendPhoto delivers a media message and returns its identifier.
	SendPhoto(ctx context.Context, userID int64, att Attachment, kb *tele.ReplyMarkup) (int, error)
	// Edit replaces the content of an existing message in place.
	Edit(ctx context.Context, userID int64, messageID int, text string, kb *tele.ReplyMarkup) (EditResult, error)
	// Delete removes a message. Failures are expected to be treated as
	// non-fatal by callers.
	Delete(ctx context.Context, userID int64, messageID int) error
}
