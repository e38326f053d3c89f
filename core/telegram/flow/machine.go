package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"curatorbot/core/logger"
	"curatorbot/core/telegram/keyboard"
	"curatorbot/core/telegram/state"
	"curatorbot/core/telegram/transport"
	"curatorbot/model"

	tele "gopkg.in/telebot.v4"
)

// CategoryDirectory lists the categories a flow may reference.
type CategoryDirectory interface {
	ListActive(ctx context.Context) ([]model.Category, error)
}

// Creator persists a finished capture as a pending submission.
type Creator interface {
	Create(ctx context.Context, sub *model.Submission) (string, error)
}

// Input is one inbound user event addressed to an input step.
type Input struct {
	Text       string
	Attachment string
	// MessageID is the user's own message; it is deleted best-effort once
	// consumed.
	MessageID int
}

const expiredNotice = "This flow has expired. Please restart from the menu."

// Machine drives capture flows. One instance serves all users; per-user
// ordering is guaranteed by the session store.
type Machine struct {
	specs       map[model.Kind]*Spec
	sessions    *state.Store
	msgr        transport.Messenger
	categories  CategoryDirectory
	subs        Creator
	onSubmitted func(ctx context.Context, sub *model.Submission)
}

// NewMachine wires a machine. onSubmitted may be nil.
func NewMachine(
	specs []*Spec,
	sessions *state.Store,
	msgr transport.Messenger,
	categories CategoryDirectory,
	subs Creator,
	onSubmitted func(ctx context.Context, sub *model.Submission),
) (*Machine, error) {
	byKind := make(map[model.Kind]*Spec, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byKind[s.Kind]; dup {
			return nil, fmt.Errorf("flow: duplicate spec for kind %s", s.Kind)
		}
		byKind[s.Kind] = s
	}
	return &Machine{
		specs:       byKind,
		sessions:    sessions,
		msgr:        msgr,
		categories:  categories,
		subs:        subs,
		onSubmitted: onSubmitted,
	}, nil
}

// Spec returns the declaration for a kind.
func (m *Machine) Spec(kind model.Kind) (*Spec, bool) {
	s, ok := m.specs[kind]
	return s, ok
}

// Active reports whether the user has a capture flow in progress.
func (m *Machine) Active(userID int64) bool {
	return m.sessions.Active(userID)
}

// Start begins a flow of the given kind, discarding any prior session.
func (m *Machine) Start(ctx context.Context, userID int64, kind model.Kind) error {
	spec, ok := m.specs[kind]
	if !ok {
		return fmt.Errorf("flow: no spec for kind %s", kind)
	}
	sess := m.sessions.Begin(userID, kind)
	if spec.RequiresCategory {
		return m.promptCategory(ctx, sess, "")
	}
	sess, ok = m.sessions.Update(userID, func(s *state.Session) {
		s.Step = state.Step{Phase: state.PhaseInput, Field: 0}
	})
	if !ok {
		return m.expired(ctx, userID)
	}
	return m.promptField(ctx, sess, spec, "")
}

// HandleCategory processes a category pick.
func (m *Machine) HandleCategory(ctx context.Context, userID int64, categoryID int64) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	spec, ok := m.specs[sess.Flow]
	if !ok {
		return m.reset(ctx, userID)
	}
	if sess.Step.Phase != state.PhaseCategory {
		return m.expired(ctx, userID)
	}

	cats, err := m.categories.ListActive(ctx)
	if err != nil {
		return m.retryNotice(ctx, sess, err)
	}
	var picked *model.Category
	for i := range cats {
		if cats[i].ID == categoryID {
			picked = &cats[i]
			break
		}
	}
	if picked == nil {
		return m.promptCategory(ctx, sess, "That category is no longer available.")
	}

	sess, ok = m.sessions.Update(userID, func(s *state.Session) {
		s.CategoryID = picked.ID
		s.CategoryName = picked.Name
		s.Step = state.Step{Phase: state.PhaseInput, Field: 0}
	})
	if !ok {
		return m.expired(ctx, userID)
	}
	return m.promptField(ctx, sess, spec, "")
}

// HandleInput processes text or an attachment addressed to the current field.
func (m *Machine) HandleInput(ctx context.Context, userID int64, in Input) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	spec, ok := m.specs[sess.Flow]
	if !ok {
		return m.reset(ctx, userID)
	}
	if sess.Step.Phase != state.PhaseInput {
		return m.expired(ctx, userID)
	}
	idx := sess.Step.Field
	if idx < 0 || idx >= len(spec.Fields) {
		// Session no longer matches the spec; restart rather than fail.
		return m.reset(ctx, userID)
	}
	field := spec.Fields[idx]

	m.consumeInput(ctx, userID, in)

	value, verr := validateInput(field, in)
	if verr != nil {
		return m.promptField(ctx, sess, spec, verr.Reason)
	}

	// The session may have been cleared while consumeInput was on the wire.
	sess, ok = m.sessions.Update(userID, func(s *state.Session) {
		s.SetValue(field.Name, value)
		if in.Attachment != "" && field.AcceptsAttachment() {
			s.Attachment = in.Attachment
		}
		s.Step = nextStep(idx, len(spec.Fields))
	})
	if !ok {
		return m.expired(ctx, userID)
	}
	return m.renderStep(ctx, sess, spec)
}

// HandleSkip skips the current field when it is optional.
func (m *Machine) HandleSkip(ctx context.Context, userID int64) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	spec, ok := m.specs[sess.Flow]
	if !ok {
		return m.reset(ctx, userID)
	}
	if sess.Step.Phase != state.PhaseInput {
		return m.expired(ctx, userID)
	}
	idx := sess.Step.Field
	if idx < 0 || idx >= len(spec.Fields) {
		return m.reset(ctx, userID)
	}
	field := spec.Fields[idx]
	if !field.Optional {
		return m.promptField(ctx, sess, spec, "This field is required.")
	}

	sess, ok = m.sessions.Update(userID, func(s *state.Session) {
		delete(s.Fields, field.Name)
		s.Step = nextStep(idx, len(spec.Fields))
	})
	if !ok {
		return m.expired(ctx, userID)
	}
	return m.renderStep(ctx, sess, spec)
}

// HandleEdit returns from Confirm to one field's input step, preserving every
// other captured value.
func (m *Machine) HandleEdit(ctx context.Context, userID int64, fieldName string) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	spec, ok := m.specs[sess.Flow]
	if !ok {
		return m.reset(ctx, userID)
	}
	if sess.Step.Phase != state.PhaseConfirm {
		return m.expired(ctx, userID)
	}
	idx, ok := spec.FieldIndex(fieldName)
	if !ok {
		return m.promptConfirm(ctx, sess, spec)
	}
	sess, ok = m.sessions.Update(userID, func(s *state.Session) {
		s.Step = state.Step{Phase: state.PhaseInput, Field: idx}
	})
	if !ok {
		return m.expired(ctx, userID)
	}
	return m.promptField(ctx, sess, spec, "")
}

// HandleConfirm creates the submission and terminates the flow. On a
// persistence failure the session is preserved so no captured input is lost.
func (m *Machine) HandleConfirm(ctx context.Context, userID int64) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	spec, ok := m.specs[sess.Flow]
	if !ok {
		return m.reset(ctx, userID)
	}
	if sess.Step.Phase != state.PhaseConfirm {
		return m.expired(ctx, userID)
	}

	sub := buildSubmission(sess, spec)
	id, err := m.subs.Create(ctx, sub)
	if err != nil {
		logger.Error(ctx, "flow", "submit.create_failed",
			slog.Int64("user_id", userID),
			slog.String("kind", string(sess.Flow)),
			slog.String("err", err.Error()),
		)
		return m.retryNotice(ctx, sess, err)
	}
	sub.ID = id

	m.sessions.Clear(userID)
	text := fmt.Sprintf("✅ Your %s was submitted for review.\nReference: %s", spec.Title, id)
	m.editAnchor(ctx, userID, sess.AnchorID, text, nil)

	logger.Info(ctx, "flow", "submit.created",
		slog.Int64("user_id", userID),
		slog.String("kind", string(sess.Flow)),
		slog.String("submission_id", id),
	)
	if m.onSubmitted != nil {
		m.onSubmitted(ctx, sub)
	}
	return nil
}

// HandleCancel is always accepted and always clears state.
func (m *Machine) HandleCancel(ctx context.Context, userID int64) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	m.sessions.Clear(userID)
	m.editAnchor(ctx, userID, sess.AnchorID, "Cancelled. Nothing was submitted.", nil)
	return nil
}

func validateInput(field Field, in Input) (string, *model.ValidationError) {
	hasAttachment := in.Attachment != ""
	switch {
	case hasAttachment && !field.AcceptsAttachment():
		return "", model.Validationf(field.Name, "please send plain text")
	case !hasAttachment && !field.AcceptsText():
		return "", model.Validationf(field.Name, "please send an attachment")
	case !hasAttachment && strings.TrimSpace(in.Text) == "":
		return "", model.Validationf(field.Name, "the message is empty")
	}
	// An attachment's caption becomes the field's text value.
	value := strings.TrimSpace(in.Text)
	if n := utf8.RuneCountInString(value); n > field.MaxLen {
		return "", model.Validationf(field.Name, "too long: %d characters, limit is %d", n, field.MaxLen)
	}
	return value, nil
}

func nextStep(idx, fieldCount int) state.Step {
	if idx+1 >= fieldCount {
		return state.Step{Phase: state.PhaseConfirm}
	}
	return state.Step{Phase: state.PhaseInput, Field: idx + 1}
}

func buildSubmission(sess *state.Session, spec *Spec) *model.Submission {
	sub := &model.Submission{
		Kind:   spec.Kind,
		UserID: sess.UserID,
		Status: model.StatusPending,
	}
	if sess.CategoryID != 0 {
		id := sess.CategoryID
		sub.CategoryID = &id
	}
	if sess.Attachment != "" {
		att := sess.Attachment
		sub.Attachment = &att
	}
	var extra []string
	for _, f := range spec.Fields {
		v, ok := sess.Value(f.Name)
		if !ok {
			continue
		}
		switch f.Bind {
		case BindTitle:
			sub.Title = v
		case BindBody:
			sub.Content = v
		case BindNone:
			extra = append(extra, f.Name+": "+v)
		}
	}
	if len(extra) > 0 {
		if sub.Content != "" {
			sub.Content += "\n\n"
		}
		sub.Content += strings.Join(extra, "\n")
	}
	return sub
}

func (m *Machine) renderStep(ctx context.Context, sess *state.Session, spec *Spec) error {
	if sess.Step.Phase == state.PhaseConfirm {
		return m.promptConfirm(ctx, sess, spec)
	}
	return m.promptField(ctx, sess, spec, "")
}

func (m *Machine) reset(ctx context.Context, userID int64) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.expired(ctx, userID)
	}
	logger.Warn(ctx, "flow", "session.inconsistent",
		slog.Int64("user_id", userID),
		slog.String("kind", string(sess.Flow)),
	)
	if _, known := m.specs[sess.Flow]; !known {
		m.sessions.Clear(userID)
		return m.expired(ctx, userID)
	}
	return m.Start(ctx, userID, sess.Flow)
}

func (m *Machine) expired(ctx context.Context, userID int64) error {
	_, err := m.msgr.Send(ctx, userID, expiredNotice, nil)
	if err != nil {
		logger.Warn(ctx, "flow", "expired.notice_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (m *Machine) retryNotice(ctx context.Context, sess *state.Session, cause error) error {
	logger.Warn(ctx, "flow", "step.transient_failure",
		slog.Int64("user_id", sess.UserID),
		slog.String("err", cause.Error()),
	)
	markup := &tele.ReplyMarkup{}
	cancel := cancelButton(markup)
	markup.InlineKeyboard = keyboard.ToInlineKeyboard([][]tele.Btn{{cancel}})
	return m.render(ctx, sess, "Something went wrong. Please try again, your answers are kept.", markup)
}
