package handlers

import (
	"fmt"

	"curatorbot/bot/notify"
	tghelpers "curatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// UnknownText handles free text outside any flow. A reply to one of the bot's
// decision notices is correlated by its embedded reference and forwarded to
// the review team; anything else gets a nudge toward the menu.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		if forwarded, err := h.forwardReply(c); forwarded {
			return err
		}
		return tghelpers.SendText(c, "I did not catch that. Use /start to open the menu.")
	}
}

// UnknownMedia handles attachments sent outside any flow.
func (h *Handlers) UnknownMedia() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "I was not expecting a file. Use /start to open the menu.")
	}
}

// UnknownCallback answers stale or malformed inline buttons.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond(&tele.CallbackResponse{Text: "This button has expired"})
		return nil
	}
}

// forwardReply relays a user's reply to a decision notice. Correlation comes
// from re-extracting the reference out of the quoted message text, never from
// transport metadata.
func (h *Handlers) forwardReply(c tele.Context) (bool, error) {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil {
		return false, nil
	}
	quoted := msg.ReplyTo.Text
	if quoted == "" {
		quoted = msg.ReplyTo.Caption
	}
	ref, ok := notify.ExtractRef(quoted)
	if !ok {
		return false, nil
	}

	ctx := tghelpers.BuildContext(c)
	h.dispatcher.ForwardModerators(ctx, fmt.Sprintf(
		"💬 Reply from user %d on submission %s:\n%s", c.Sender().ID, ref, escapeMD(c.Text()),
	))
	return true, tghelpers.SendText(c, "Thanks, your reply was passed on to the team.")
}
