package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"curatorbot/core/telegram/state"
	"curatorbot/core/telegram/transport"
	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type sentMessage struct {
	UserID int64
	ID     int
	Text   string
}

type fakeMessenger struct {
	nextID     int
	sends      []sentMessage
	edits      []sentMessage
	deletes    []int
	failSend   bool
	failEdit   bool
	failDelete bool
}

func (f *fakeMessenger) Send(_ context.Context, userID int64, text string, _ *tele.ReplyMarkup) (int, error) {
	if f.failSend {
		return 0, errors.New("send failed")
	}
	f.nextID++
	f.sends = append(f.sends, sentMessage{UserID: userID, ID: f.nextID, Text: text})
	return f.nextID, nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, userID int64, att transport.Attachment, _ *tele.ReplyMarkup) (int, error) {
	f.nextID++
	f.sends = append(f.sends, sentMessage{UserID: userID, ID: f.nextID, Text: att.Caption})
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(_ context.Context, userID int64, messageID int, text string, _ *tele.ReplyMarkup) (transport.EditResult, error) {
	if f.failEdit {
		return transport.EditApplied, errors.New("edit failed")
	}
	f.edits = append(f.edits, sentMessage{UserID: userID, ID: messageID, Text: text})
	return transport.EditApplied, nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	if f.failDelete {
		return errors.New("message to delete not found")
	}
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeMessenger) lastRender() string {
	if len(f.edits) > 0 {
		return f.edits[len(f.edits)-1].Text
	}
	if len(f.sends) > 0 {
		return f.sends[len(f.sends)-1].Text
	}
	return ""
}

type fakeDirectory struct {
	cats []model.Category
	err  error
}

func (f *fakeDirectory) ListActive(context.Context) ([]model.Category, error) {
	return f.cats, f.err
}

type fakeCreator struct {
	created []*model.Submission
	err     error
}

func (f *fakeCreator) Create(_ context.Context, sub *model.Submission) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, sub)
	return "sub-1", nil
}

func requestSpec() *Spec {
	return &Spec{
		Kind:             model.KindRequest,
		Title:            "Content request",
		RequiresCategory: true,
		Fields: []Field{
			{Name: "title", Prompt: "What are you looking for?", Kind: TextOnly, MaxLen: MaxShortField, Bind: BindTitle},
			{Name: "description", Prompt: "Any details?", Kind: TextOnly, MaxLen: MaxLongField, Optional: true, Bind: BindBody},
		},
	}
}

func feedbackSpec() *Spec {
	return &Spec{
		Kind:  model.KindFeedback,
		Title: "Feedback",
		Fields: []Field{
			{Name: "message", Prompt: "Tell us", Kind: TextOrAttachment, MaxLen: MaxLongField, Bind: BindBody},
		},
	}
}

type fixture struct {
	machine   *Machine
	sessions  *state.Store
	msgr      *fakeMessenger
	dir       *fakeDirectory
	creator   *fakeCreator
	submitted []*model.Submission
}

func newFixture(t *testing.T, specs ...*Spec) *fixture {
	t.Helper()
	fx := &fixture{
		sessions: state.NewStore(time.Minute),
		msgr:     &fakeMessenger{},
		dir: &fakeDirectory{cats: []model.Category{
			{ID: 1, Name: "Film", Active: true},
			{ID: 2, Name: "Series", Active: true},
		}},
		creator: &fakeCreator{},
	}
	m, err := NewMachine(specs, fx.sessions, fx.msgr, fx.dir, fx.creator,
		func(_ context.Context, sub *model.Submission) { fx.submitted = append(fx.submitted, sub) })
	require.NoError(t, err)
	fx.machine = m
	return fx
}

const user = int64(100)

func TestFullCaptureWithSkippedOptionalField(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()

	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	assert.Contains(t, fx.msgr.lastRender(), "Choose a category")

	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))
	assert.Contains(t, fx.msgr.lastRender(), "step 1/2")

	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie X", MessageID: 55}))
	assert.Contains(t, fx.msgr.lastRender(), "step 2/2")

	require.NoError(t, fx.machine.HandleSkip(ctx, user))
	confirm := fx.msgr.lastRender()
	assert.Contains(t, confirm, "Category: Film")
	assert.Contains(t, confirm, "title: Movie X")
	assert.Contains(t, confirm, "description: —")

	require.NoError(t, fx.machine.HandleConfirm(ctx, user))
	require.Len(t, fx.creator.created, 1)
	sub := fx.creator.created[0]
	assert.Equal(t, "Movie X", sub.Title)
	assert.Empty(t, sub.Content)
	require.NotNil(t, sub.CategoryID)
	assert.EqualValues(t, 1, *sub.CategoryID)
	assert.Equal(t, model.StatusPending, sub.Status)

	assert.False(t, fx.machine.Active(user), "session cleared on submit")
	require.Len(t, fx.submitted, 1)
	assert.Equal(t, "sub-1", fx.submitted[0].ID)
}

func TestInputKindMismatchRepromptsWithoutAdvancing(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))

	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Attachment: "file-1"}))
	assert.Contains(t, fx.msgr.lastRender(), "step 1/2", "state must not advance")
	assert.Contains(t, fx.msgr.lastRender(), "plain text")

	sess, ok := fx.sessions.Get(user)
	require.True(t, ok)
	_, captured := sess.Value("title")
	assert.False(t, captured)
}

func TestOverlongInputReprompts(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))

	long := strings.Repeat("x", MaxShortField+1)
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: long}))
	assert.Contains(t, fx.msgr.lastRender(), "too long")
	assert.Contains(t, fx.msgr.lastRender(), "step 1/2")
}

func TestSkipRequiredFieldRefused(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))

	require.NoError(t, fx.machine.HandleSkip(ctx, user))
	assert.Contains(t, fx.msgr.lastRender(), "required")
	assert.Contains(t, fx.msgr.lastRender(), "step 1/2")
}

func TestEditFromConfirmPreservesOtherFields(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie X"}))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "first description"}))

	require.NoError(t, fx.machine.HandleEdit(ctx, user, "title"))
	assert.Contains(t, fx.msgr.lastRender(), "step 1/2")
	assert.Contains(t, fx.msgr.lastRender(), "Current value: Movie X")

	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie Y"}))
	confirm := fx.msgr.lastRender()
	assert.Contains(t, confirm, "title: Movie Y")
	assert.Contains(t, confirm, "description: first description")
}

func TestCancelClearsSessionWithoutSideEffects(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie X"}))

	require.NoError(t, fx.machine.HandleCancel(ctx, user))
	assert.False(t, fx.machine.Active(user))
	assert.Empty(t, fx.creator.created)
	assert.Contains(t, fx.msgr.lastRender(), "Cancelled")
}

func TestStaleEventGetsExpiredNotice(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()

	require.NoError(t, fx.machine.HandleConfirm(ctx, user))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "hello"}))
	require.NoError(t, fx.machine.HandleSkip(ctx, user))

	for _, s := range fx.msgr.sends {
		assert.Contains(t, s.Text, "expired")
	}
	assert.Empty(t, fx.creator.created)
}

func TestStepMismatchIsNoOp(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))

	// Confirm pressed while the flow still waits for a category (stale UI).
	require.NoError(t, fx.machine.HandleConfirm(ctx, user))
	assert.Empty(t, fx.creator.created)

	sess, ok := fx.sessions.Get(user)
	require.True(t, ok, "session survives a stale event")
	assert.Equal(t, state.PhaseCategory, sess.Step.Phase)
}

func TestPersistenceFailureKeepsSession(t *testing.T) {
	fx := newFixture(t, feedbackSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindFeedback))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "great bot"}))

	fx.creator.err = errors.New("db down")
	require.NoError(t, fx.machine.HandleConfirm(ctx, user))
	assert.Contains(t, fx.msgr.lastRender(), "try again")

	sess, ok := fx.sessions.Get(user)
	require.True(t, ok, "captured input must not be lost")
	v, _ := sess.Value("message")
	assert.Equal(t, "great bot", v)

	// Retry after the outage succeeds with the preserved data.
	fx.creator.err = nil
	require.NoError(t, fx.machine.HandleConfirm(ctx, user))
	require.Len(t, fx.creator.created, 1)
	assert.Equal(t, "great bot", fx.creator.created[0].Content)
}

func TestSingleAnchorMessagePerFlow(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie X"}))
	require.NoError(t, fx.machine.HandleSkip(ctx, user))

	require.Len(t, fx.msgr.sends, 1, "exactly one anchor is created")
	anchor := fx.msgr.sends[0].ID
	for _, e := range fx.msgr.edits {
		assert.Equal(t, anchor, e.ID, "every transition edits the same anchor")
	}
}

func TestUserInputDeletedBestEffort(t *testing.T) {
	fx := newFixture(t, requestSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindRequest))
	require.NoError(t, fx.machine.HandleCategory(ctx, user, 1))

	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "Movie X", MessageID: 77}))
	assert.Equal(t, []int{77}, fx.msgr.deletes)

	// Deletion failure does not block the transition.
	fx.msgr.failDelete = true
	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "some details", MessageID: 78}))
	assert.Contains(t, fx.msgr.lastRender(), "review your answers")
}

// cancellingMessenger clears the user's session while the machine awaits the
// input-delete round trip, like a /cancel or TTL eviction landing mid-handler.
type cancellingMessenger struct {
	fakeMessenger
	sessions *state.Store
	user     int64
}

func (m *cancellingMessenger) Delete(ctx context.Context, userID int64, messageID int) error {
	m.sessions.Clear(m.user)
	return m.fakeMessenger.Delete(ctx, userID, messageID)
}

func TestSessionClearedDuringInputIsExpiredNotCrash(t *testing.T) {
	sessions := state.NewStore(time.Minute)
	msgr := &cancellingMessenger{sessions: sessions, user: user}
	dir := &fakeDirectory{cats: []model.Category{{ID: 1, Name: "Film", Active: true}}}
	creator := &fakeCreator{}
	m, err := NewMachine([]*Spec{requestSpec()}, sessions, msgr, dir, creator, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx, user, model.KindRequest))
	require.NoError(t, m.HandleCategory(ctx, user, 1))

	require.NoError(t, m.HandleInput(ctx, user, Input{Text: "hello", MessageID: 7}))

	assert.Empty(t, creator.created)
	assert.False(t, m.Active(user))
	last := msgr.sends[len(msgr.sends)-1]
	assert.Contains(t, last.Text, "expired")
}

func TestAttachmentCaptionBecomesFieldValue(t *testing.T) {
	fx := newFixture(t, feedbackSpec())
	ctx := context.Background()
	require.NoError(t, fx.machine.Start(ctx, user, model.KindFeedback))

	require.NoError(t, fx.machine.HandleInput(ctx, user, Input{Text: "see screenshot", Attachment: "file-9"}))
	require.NoError(t, fx.machine.HandleConfirm(ctx, user))

	require.Len(t, fx.creator.created, 1)
	sub := fx.creator.created[0]
	assert.Equal(t, "see screenshot", sub.Content)
	require.NotNil(t, sub.Attachment)
	assert.Equal(t, "file-9", *sub.Attachment)
}
