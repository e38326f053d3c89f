package notify

import (
	"context"
	"errors"
	"testing"

	"curatorbot/core/telegram/transport"
	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type delivery struct {
	To    int64
	Text  string
	Photo string
}

type fakeMessenger struct {
	nextID     int
	deliveries []delivery
	failFor    map[int64]bool
}

func (f *fakeMessenger) Send(_ context.Context, userID int64, text string, _ *tele.ReplyMarkup) (int, error) {
	if f.failFor[userID] {
		return 0, errors.New("blocked by user")
	}
	f.nextID++
	f.deliveries = append(f.deliveries, delivery{To: userID, Text: text})
	return f.nextID, nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, userID int64, att transport.Attachment, _ *tele.ReplyMarkup) (int, error) {
	if f.failFor[userID] {
		return 0, errors.New("blocked by user")
	}
	f.nextID++
	f.deliveries = append(f.deliveries, delivery{To: userID, Text: att.Caption, Photo: att.FileID})
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(_ context.Context, _ int64, _ int, _ string, _ *tele.ReplyMarkup) (transport.EditResult, error) {
	return transport.EditApplied, nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, _ int) error { return nil }

const subID = "4f1c2ada-8a42-4f2b-b9be-0e5cbb3a1f00"

func approvedSubmission(note string) *model.Submission {
	sub := &model.Submission{
		ID:     subID,
		Kind:   model.KindContribution,
		UserID: 500,
		Title:  "Movie X",
		Status: model.StatusApproved,
	}
	if note != "" {
		sub.ReviewNote = &note
	}
	return sub
}

func TestNotifySubmitterCarriesNoteAndRef(t *testing.T) {
	msgr := &fakeMessenger{}
	d := NewDispatcher(msgr, Targets{})

	require.NoError(t, d.NotifySubmitter(context.Background(), approvedSubmission("ok")))
	require.Len(t, msgr.deliveries, 1)
	got := msgr.deliveries[0]
	assert.EqualValues(t, 500, got.To)
	assert.Contains(t, got.Text, "approved")
	assert.Contains(t, got.Text, "Moderator note: ok")

	ref, found := ExtractRef(got.Text)
	require.True(t, found, "notice must embed a machine-extractable reference")
	assert.Equal(t, subID, ref)
}

func TestNotifySubmitterEscapesNoteMarkup(t *testing.T) {
	msgr := &fakeMessenger{}
	d := NewDispatcher(msgr, Targets{})

	require.NoError(t, d.NotifySubmitter(context.Background(), approvedSubmission("watch_this *now*")))
	require.Len(t, msgr.deliveries, 1)
	got := msgr.deliveries[0].Text
	assert.Contains(t, got, `watch\_this \*now\*`)
	assert.NotContains(t, got, "watch_this *now*")

	// escaping must not break reply correlation
	ref, found := ExtractRef(got)
	require.True(t, found)
	assert.Equal(t, subID, ref)
}

func TestPublishEscapesUserMarkup(t *testing.T) {
	msgr := &fakeMessenger{}
	d := NewDispatcher(msgr, Targets{Channels: []int64{-1}})

	sub := approvedSubmission("")
	sub.Title = "50% off_everything"
	sub.Content = "grab it *fast* [now]"

	delivered, _ := d.Publish(context.Background(), sub)
	require.Equal(t, 1, delivered)
	got := msgr.deliveries[0].Text
	assert.Contains(t, got, `off\_everything`)
	assert.Contains(t, got, `\*fast\* \[now]`)
}

func TestNotifySubmitterRejectedWithAttachment(t *testing.T) {
	msgr := &fakeMessenger{}
	d := NewDispatcher(msgr, Targets{})

	att := "file-1"
	sub := approvedSubmission("")
	sub.Status = model.StatusRejected
	sub.Attachment = &att

	require.NoError(t, d.NotifySubmitter(context.Background(), sub))
	require.Len(t, msgr.deliveries, 1)
	assert.Equal(t, "file-1", msgr.deliveries[0].Photo)
	assert.Contains(t, msgr.deliveries[0].Text, "not approved")
}

func TestNotifySubmitterRefusesPending(t *testing.T) {
	d := NewDispatcher(&fakeMessenger{}, Targets{})
	sub := approvedSubmission("")
	sub.Status = model.StatusPending
	assert.Error(t, d.NotifySubmitter(context.Background(), sub))
}

func TestExtractRefIgnoresUnrelatedText(t *testing.T) {
	_, found := ExtractRef("just a chat message with no reference")
	assert.False(t, found)
}

func TestForwardModeratorsDeliversIndependently(t *testing.T) {
	msgr := &fakeMessenger{failFor: map[int64]bool{11: true}}
	d := NewDispatcher(msgr, Targets{AdminID: 10, Moderators: []int64{11, 12}})

	d.ForwardModerators(context.Background(), "new submission pending")

	var reached []int64
	for _, del := range msgr.deliveries {
		reached = append(reached, del.To)
	}
	assert.ElementsMatch(t, []int64{10, 12}, reached, "one failing recipient must not block the rest")
}

func TestForwardModeratorsDeduplicatesAdmin(t *testing.T) {
	msgr := &fakeMessenger{}
	d := NewDispatcher(msgr, Targets{AdminID: 10, Moderators: []int64{10, 11}})
	d.ForwardModerators(context.Background(), "payload")
	assert.Len(t, msgr.deliveries, 2)
}

func TestPublishReportsDeliveredOfConfigured(t *testing.T) {
	msgr := &fakeMessenger{failFor: map[int64]bool{-2: true}}
	d := NewDispatcher(msgr, Targets{Channels: []int64{-1, -2, -3}})

	delivered, configured := d.Publish(context.Background(), approvedSubmission(""))
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 3, configured)

	var reached []int64
	for _, del := range msgr.deliveries {
		reached = append(reached, del.To)
	}
	assert.ElementsMatch(t, []int64{-1, -3}, reached)
}
