package transport

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"curatorbot/core/logger"
	"curatorbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// BotMessenger adapts a telebot instance to the Messenger interface.
type BotMessenger struct {
	bot *tele.Bot
}

// NewBotMessenger wraps the provided bot. The bot may be nil and bound later
// via Bind, for wiring built before the bot instance exists.
func NewBotMessenger(bot *tele.Bot) *BotMessenger {
	return &BotMessenger{bot: bot}
}

// Bind attaches the bot instance. It must be called before the first update
// is processed.
func (m *BotMessenger) Bind(bot *tele.Bot) {
	m.bot = bot
}

// Send delivers a text message. A transient failure is retried once before
// being surfaced to the caller.
func (m *BotMessenger) Send(ctx context.Context, userID int64, text string, kb *tele.ReplyMarkup) (int, error) {
	return m.sendWithRetry(ctx, userID, "sendMessage", func() (*tele.Message, error) {
		return m.bot.Send(&tele.User{ID: userID}, text, sendOpts(kb))
	})
}

// SendPhoto delivers a media message with an optional caption.
func (m *BotMessenger) SendPhoto(ctx context.Context, userID int64, att Attachment, kb *tele.ReplyMarkup) (int, error) {
	photo := &tele.Photo{File: tele.File{FileID: att.FileID}, Caption: att.Caption}
	return m.sendWithRetry(ctx, userID, "sendPhoto", func() (*tele.Message, error) {
		return m.bot.Send(&tele.User{ID: userID}, photo, sendOpts(kb))
	})
}

// Edit replaces message content in place. The Telegram "message is not
// modified" response is mapped to EditNotModified and treated as success.
func (m *BotMessenger) Edit(ctx context.Context, userID int64, messageID int, text string, kb *tele.ReplyMarkup) (EditResult, error) {
	ref := storedMessage(userID, messageID)
	_, err := m.bot.Edit(ref, text, sendOpts(kb))
	switch {
	case err == nil:
		return EditApplied, nil
	case errors.Is(err, tele.ErrSameMessageContent):
		return EditNotModified, nil
	case errors.Is(err, tele.ErrTrueResult):
		return EditApplied, nil
	default:
		return EditApplied, err
	}
}

// Delete removes a message. Callers treat failures as non-fatal.
func (m *BotMessenger) Delete(ctx context.Context, userID int64, messageID int) error {
	return m.bot.Delete(storedMessage(userID, messageID))
}

func (m *BotMessenger) sendWithRetry(ctx context.Context, userID int64, endpoint string, run func() (*tele.Message, error)) (int, error) {
	msg, err := run()
	if err != nil && netutil.ShouldRetry(err) {
		logger.Warn(ctx, "tg.transport", "send.retry",
			slog.String("endpoint", endpoint),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		msg, err = run()
	}
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func sendOpts(kb *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: kb}
}

func storedMessage(userID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: userID}
}
