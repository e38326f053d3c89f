package handlers

import (
	"errors"
	"fmt"
	"strings"

	"curatorbot/core/paging"
	"curatorbot/core/telegram/actions"
	"curatorbot/core/telegram/format"
	tghelpers "curatorbot/core/telegram/helpers"
	"curatorbot/core/telegram/keyboard"
	"curatorbot/core/telegram/transport"
	"curatorbot/model"

	tele "gopkg.in/telebot.v4"
)

const listButtonsPerRow = 5

func (h *Handlers) handleReviewCommand(c tele.Context) error {
	return h.showQueue(c, 1, "")
}

func (h *Handlers) onReviewPage(c tele.Context, a actions.Action) error {
	return h.showQueue(c, a.Page, "")
}

func (h *Handlers) onReviewBack(c tele.Context, _ actions.Action) error {
	return h.showQueue(c, h.pipeline.CurrentPage(c.Sender().ID), "")
}

// showQueue renders one page of the pending list, sweeping any detail
// previews left behind first.
func (h *Handlers) showQueue(c tele.Context, pageNum int, banner string) error {
	ctx := tghelpers.BuildContext(c)
	moderatorID := c.Sender().ID
	h.tracker.Cleanup(ctx, moderatorID)

	page, err := h.pipeline.ListPending(ctx, moderatorID, pageNum)
	if err != nil {
		return tghelpers.SendText(c, "The queue is unavailable right now. Please try again.")
	}

	text := renderQueue(page, banner)
	markup := h.queueMarkup(page)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func renderQueue(page paging.Page[model.Submission], banner string) string {
	var b strings.Builder
	if banner != "" {
		fmt.Fprintf(&b, "%s\n\n", banner)
	}
	b.WriteString("*Pending submissions*\n")
	if page.Info.TotalItems == 0 {
		b.WriteString("\nThe queue is empty. 🎉")
		return b.String()
	}
	fmt.Fprintf(&b, "_%d–%d of %d, page %d/%d_\n\n",
		page.Info.StartItem, page.Info.EndItem, page.Info.TotalItems,
		page.Info.CurrentPage, page.Info.TotalPages,
	)
	for i, sub := range page.Items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", page.Info.StartItem+i, sub.Kind, escapeMD(submissionLabel(&sub)))
	}
	b.WriteString("\nPick a number to open it.")
	return b.String()
}

func (h *Handlers) queueMarkup(page paging.Page[model.Submission]) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows [][]tele.Btn

	open := make([]tele.Btn, 0, len(page.Items))
	for i, sub := range page.Items {
		open = append(open, actions.Button(markup, fmt.Sprintf("%d", page.Info.StartItem+i), actions.Action{
			Type:         actions.ReviewOpen,
			SubmissionID: sub.ID,
		}))
	}
	rows = append(rows, keyboard.ChunkButtons(open, listButtonsPerRow)...)

	var nav []tele.Btn
	if page.Info.HasPrev {
		nav = append(nav, actions.Button(markup, "⬅️ Prev", actions.Action{
			Type: actions.ReviewPage,
			Page: page.Info.CurrentPage - 1,
		}))
	}
	if page.Info.HasNext {
		nav = append(nav, actions.Button(markup, "Next ➡️", actions.Action{
			Type: actions.ReviewPage,
			Page: page.Info.CurrentPage + 1,
		}))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []tele.Btn{
		actions.Button(markup, "🏠 Menu", actions.Action{Type: actions.Menu}),
	})
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)
	return markup
}

// onReviewOpen replaces the list with a detail view. An attachment is sent as
// a separate tracked preview so navigating away sweeps it.
func (h *Handlers) onReviewOpen(c tele.Context, a actions.Action) error {
	ctx := tghelpers.BuildContext(c)
	moderatorID := c.Sender().ID

	sub, err := h.pipeline.ViewDetail(ctx, a.SubmissionID)
	if errors.Is(err, model.ErrNotFound) {
		return h.showQueue(c, h.pipeline.CurrentPage(moderatorID), "⚠️ That submission no longer exists.")
	}
	if err != nil {
		return tghelpers.SendText(c, "Could not load the submission. Please try again.")
	}

	if sub.HasAttachment() {
		id, perr := h.msgr.SendPhoto(ctx, moderatorID, transport.Attachment{
			FileID:  *sub.Attachment,
			Caption: "Attachment for " + escapeMD(submissionLabel(sub)),
		}, nil)
		if perr == nil {
			h.tracker.Track(moderatorID, id)
		}
	}

	markup := &tele.ReplyMarkup{}
	var rows [][]tele.Btn
	if sub.Status == model.StatusPending {
		rows = append(rows, []tele.Btn{
			actions.Button(markup, "✅ Approve", actions.Action{Type: actions.Approve, SubmissionID: sub.ID}),
			actions.Button(markup, "❌ Reject", actions.Action{Type: actions.Reject, SubmissionID: sub.ID}),
		})
	}
	rows = append(rows, []tele.Btn{
		actions.Button(markup, "⬅️ Back to queue", actions.Action{Type: actions.ReviewBack}),
	})
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)

	return tghelpers.EditOrSendMD(c, renderDetail(sub), markup)
}

func renderDetail(sub *model.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", escapeMD(submissionLabel(sub)))
	fmt.Fprintf(&b, "Kind: %s\n", sub.Kind)
	fmt.Fprintf(&b, "Status: %s\n", sub.Status)
	fmt.Fprintf(&b, "From: %d\n", sub.UserID)
	fmt.Fprintf(&b, "Received: %s\n", sub.CreatedAt.Format("2006-01-02 15:04"))
	if sub.Content != "" {
		fmt.Fprintf(&b, "\n%s\n", escapeMD(sub.Content))
	}
	if note := sub.Note(); note != "" {
		fmt.Fprintf(&b, "\nModerator note: %s\n", escapeMD(note))
	}
	fmt.Fprintf(&b, "\nID: `%s`", sub.ID)
	return b.String()
}

func (h *Handlers) onApprove(c tele.Context, a actions.Action) error {
	return h.decide(c, a.SubmissionID, model.StatusApproved, "")
}

func (h *Handlers) onReject(c tele.Context, a actions.Action) error {
	return h.decide(c, a.SubmissionID, model.StatusRejected, "")
}

// decide applies the decision and refreshes the moderator's current page.
// A lost race shows who got there first instead of failing.
func (h *Handlers) decide(c tele.Context, id string, status model.Status, note string) error {
	ctx := tghelpers.BuildContext(c)
	moderatorID := c.Sender().ID

	var (
		sub *model.Submission
		err error
	)
	if status == model.StatusApproved {
		sub, err = h.pipeline.Approve(ctx, moderatorID, id, note)
	} else {
		sub, err = h.pipeline.Reject(ctx, moderatorID, id, note)
	}

	switch {
	case errors.Is(err, model.ErrConflict):
		_ = c.Respond(&tele.CallbackResponse{Text: "Already decided by another moderator"})
		return h.showQueue(c, h.pipeline.CurrentPage(moderatorID), "⚠️ Already decided by another moderator.")
	case errors.Is(err, model.ErrNotFound):
		return h.showQueue(c, h.pipeline.CurrentPage(moderatorID), "⚠️ That submission no longer exists.")
	case err != nil:
		return tghelpers.SendText(c, "The decision could not be applied. Please try again.")
	}

	banner := "✅ Approved: " + escapeMD(submissionLabel(sub))
	if status == model.StatusRejected {
		banner = "❌ Rejected: " + escapeMD(submissionLabel(sub))
	}
	return h.showQueue(c, h.pipeline.CurrentPage(moderatorID), banner)
}

// handleApproveCommand decides by id with an optional note:
// /approve <id> [note...]
func (h *Handlers) handleApproveCommand(c tele.Context) error {
	return h.decideCommand(c, model.StatusApproved)
}

func (h *Handlers) handleRejectCommand(c tele.Context) error {
	return h.decideCommand(c, model.StatusRejected)
}

func (h *Handlers) decideCommand(c tele.Context, status model.Status) error {
	args := c.Args()
	if len(args) == 0 {
		return tghelpers.SendText(c, "Usage: /approve <id> [note] or /reject <id> [note]")
	}
	id := args[0]
	note := strings.TrimSpace(strings.Join(args[1:], " "))
	return h.decide(c, id, status, note)
}

func submissionLabel(sub *model.Submission) string {
	if sub.Title != "" {
		return sub.Title
	}
	if r := []rune(sub.Content); len(r) > 40 {
		return string(r[:40]) + "…"
	}
	if sub.Content != "" {
		return sub.Content
	}
	return sub.ID
}

func newSubmissionNotice(sub *model.Submission) string {
	return fmt.Sprintf("📬 New %s pending review: %s\n/review to browse the queue.",
		sub.Kind, escapeMD(submissionLabel(sub)))
}

func escapeMD(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}
