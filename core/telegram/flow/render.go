package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"curatorbot/core/logger"
	"curatorbot/core/telegram/actions"
	"curatorbot/core/telegram/format"
	"curatorbot/core/telegram/keyboard"
	"curatorbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const categoryButtonsPerRow = 2

func (m *Machine) promptCategory(ctx context.Context, sess *state.Session, problem string) error {
	spec := m.specs[sess.Flow]
	cats, err := m.categories.ListActive(ctx)
	if err != nil {
		return m.retryNotice(ctx, sess, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", spec.Title)
	if problem != "" {
		fmt.Fprintf(&b, "⚠️ %s\n\n", problem)
	}
	b.WriteString("Choose a category:")

	markup := &tele.ReplyMarkup{}
	btns := make([]tele.Btn, 0, len(cats))
	for _, c := range cats {
		btns = append(btns, actions.Button(markup, c.Name, actions.Action{
			Type:       actions.PickCategory,
			CategoryID: c.ID,
		}))
	}
	rows := keyboard.ChunkButtons(btns, categoryButtonsPerRow)
	rows = append(rows, []tele.Btn{cancelButton(markup)})
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)

	return m.render(ctx, sess, b.String(), markup)
}

func (m *Machine) promptField(ctx context.Context, sess *state.Session, spec *Spec, problem string) error {
	idx := sess.Step.Field
	field := spec.Fields[idx]

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* — step %d/%d\n\n", spec.Title, idx+1, len(spec.Fields))
	if problem != "" {
		fmt.Fprintf(&b, "⚠️ %s\n\n", problem)
	}
	b.WriteString(field.Prompt)
	if field.Optional {
		b.WriteString("\n_(optional — you can skip this step)_")
	}
	if prev, ok := sess.Value(field.Name); ok && prev != "" {
		fmt.Fprintf(&b, "\n\nCurrent value: %s", escape(prev))
	}

	markup := &tele.ReplyMarkup{}
	var rows [][]tele.Btn
	if field.Optional {
		rows = append(rows, []tele.Btn{
			actions.Button(markup, "⏭ Skip", actions.Action{Type: actions.SkipField}),
		})
	}
	rows = append(rows, []tele.Btn{cancelButton(markup)})
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)

	return m.render(ctx, sess, b.String(), markup)
}

func (m *Machine) promptConfirm(ctx context.Context, sess *state.Session, spec *Spec) error {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* — review your answers\n\n", spec.Title)
	if spec.RequiresCategory {
		fmt.Fprintf(&b, "Category: %s\n", escape(sess.CategoryName))
	}
	for _, f := range spec.Fields {
		if v, ok := sess.Value(f.Name); ok {
			fmt.Fprintf(&b, "%s: %s\n", f.Name, escape(v))
		} else {
			fmt.Fprintf(&b, "%s: —\n", f.Name)
		}
	}
	if sess.Attachment != "" {
		b.WriteString("Attachment: included\n")
	}
	b.WriteString("\nSubmit for review?")

	markup := &tele.ReplyMarkup{}
	rows := [][]tele.Btn{{
		actions.Button(markup, "✅ Submit", actions.Action{Type: actions.Confirm}),
	}}
	editBtns := make([]tele.Btn, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		editBtns = append(editBtns, actions.Button(markup, "✏️ "+f.Name, actions.Action{
			Type:  actions.EditField,
			Field: f.Name,
		}))
	}
	rows = append(rows, keyboard.ChunkButtons(editBtns, categoryButtonsPerRow)...)
	rows = append(rows, []tele.Btn{cancelButton(markup)})
	markup.InlineKeyboard = keyboard.ToInlineKeyboard(rows)

	return m.render(ctx, sess, b.String(), markup)
}

// render edits the single anchor message in place, creating it on first use.
// A failed edit falls back to sending a fresh anchor so the user is never
// left without a prompt.
func (m *Machine) render(ctx context.Context, sess *state.Session, text string, markup *tele.ReplyMarkup) error {
	if sess.AnchorID != 0 {
		_, err := m.msgr.Edit(ctx, sess.UserID, sess.AnchorID, text, markup)
		if err == nil {
			return nil
		}
		logger.Warn(ctx, "flow", "anchor.edit_failed",
			slog.Int64("user_id", sess.UserID),
			slog.Int("message_id", sess.AnchorID),
			slog.String("err", err.Error()),
		)
	}
	id, err := m.msgr.Send(ctx, sess.UserID, text, markup)
	if err != nil {
		return fmt.Errorf("flow: render: %w", err)
	}
	m.sessions.Update(sess.UserID, func(s *state.Session) { s.AnchorID = id })
	sess.AnchorID = id
	return nil
}

// editAnchor rewrites the anchor after the session is gone (submitted or
// cancelled terminal screens). Failures are non-fatal.
func (m *Machine) editAnchor(ctx context.Context, userID int64, anchorID int, text string, markup *tele.ReplyMarkup) {
	if anchorID == 0 {
		if _, err := m.msgr.Send(ctx, userID, text, markup); err != nil {
			logger.Warn(ctx, "flow", "terminal.send_failed",
				slog.Int64("user_id", userID),
				slog.String("err", err.Error()),
			)
		}
		return
	}
	if _, err := m.msgr.Edit(ctx, userID, anchorID, text, markup); err != nil {
		logger.Warn(ctx, "flow", "terminal.edit_failed",
			slog.Int64("user_id", userID),
			slog.Int("message_id", anchorID),
			slog.String("err", err.Error()),
		)
	}
}

// consumeInput deletes the user's own message once its content is captured.
// Deletion failure never blocks the transition.
func (m *Machine) consumeInput(ctx context.Context, userID int64, in Input) {
	if in.MessageID == 0 {
		return
	}
	if err := m.msgr.Delete(ctx, userID, in.MessageID); err != nil {
		logger.Warn(ctx, "flow", "input.delete_failed",
			slog.Int64("user_id", userID),
			slog.Int("message_id", in.MessageID),
			slog.String("err", err.Error()),
		)
	}
}

func cancelButton(markup *tele.ReplyMarkup) tele.Btn {
	return actions.Button(markup, "❌ Cancel", actions.Action{Type: actions.Cancel})
}

func escape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}
