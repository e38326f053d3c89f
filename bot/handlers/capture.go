package handlers

import (
	"curatorbot/core/telegram/actions"
	"curatorbot/core/telegram/flow"
	tghelpers "curatorbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Active reports whether the sender has a capture flow in progress. Together
// with Handle it satisfies the message router's Conversation interface.
func (h *Handlers) Active(userID int64) bool {
	return h.machine.Active(userID)
}

// Handle feeds a free-form update into the active capture flow.
func (h *Handlers) Handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleInput(ctx, c.Sender().ID, inputFrom(c))
}

// inputFrom extracts the text or attachment carried by the update. A photo's
// or document's caption rides along as the text value.
func inputFrom(c tele.Context) flow.Input {
	in := flow.Input{Text: c.Text()}
	if msg := c.Message(); msg != nil {
		in.MessageID = msg.ID
		switch {
		case msg.Photo != nil:
			in.Attachment = msg.Photo.FileID
			in.Text = msg.Caption
		case msg.Document != nil:
			in.Attachment = msg.Document.FileID
			in.Text = msg.Caption
		}
	}
	return in
}

func (h *Handlers) onStartFlow(c tele.Context, a actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	h.tracker.Cleanup(ctx, c.Sender().ID)
	return h.machine.Start(ctx, c.Sender().ID, a.Kind)
}

func (h *Handlers) onPickCategory(c tele.Context, a actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleCategory(ctx, c.Sender().ID, a.CategoryID)
}

func (h *Handlers) onSkipField(c tele.Context, _ actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleSkip(ctx, c.Sender().ID)
}

func (h *Handlers) onEditField(c tele.Context, a actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleEdit(ctx, c.Sender().ID, a.Field)
}

func (h *Handlers) onConfirm(c tele.Context, _ actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleConfirm(ctx, c.Sender().ID)
}

func (h *Handlers) onCancel(c tele.Context, _ actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	return h.machine.HandleCancel(ctx, c.Sender().ID)
}
