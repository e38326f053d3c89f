package review

import (
	"context"
	"fmt"
	"testing"
	"time"

	"curatorbot/core/paging"
	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	subs      map[string]*model.Submission
	ids       []string
	getErr    error
	decideErr error
}

func newFakeStore(pending int) *fakeStore {
	s := &fakeStore{subs: map[string]*model.Submission{}}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < pending; i++ {
		id := fmt.Sprintf("sub-%03d", i)
		s.subs[id] = &model.Submission{
			ID:        id,
			Kind:      model.KindContribution,
			UserID:    int64(1000 + i),
			Title:     fmt.Sprintf("item %d", i),
			Status:    model.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		s.ids = append(s.ids, id)
	}
	return s
}

func (s *fakeStore) ListByStatus(_ context.Context, status model.Status, offset, limit int, _ paging.SortField, _ paging.SortOrder) ([]model.Submission, int, error) {
	var matched []model.Submission
	for _, id := range s.ids {
		if s.subs[id].Status == status {
			matched = append(matched, *s.subs[id])
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*model.Submission, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	sub, ok := s.subs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *fakeStore) Decide(_ context.Context, id string, status model.Status, reviewerID int64, note string) (*model.Submission, error) {
	if s.decideErr != nil {
		return nil, s.decideErr
	}
	sub, ok := s.subs[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if sub.Status != model.StatusPending {
		return nil, model.ErrConflict
	}
	now := time.Now()
	sub.Status = status
	sub.ReviewedAt = &now
	sub.ReviewerID = &reviewerID
	if note != "" {
		sub.ReviewNote = &note
	}
	cp := *sub
	return &cp, nil
}

type fakeNotifier struct {
	notified  []*model.Submission
	published []*model.Submission
}

func (n *fakeNotifier) NotifySubmitter(_ context.Context, sub *model.Submission) error {
	n.notified = append(n.notified, sub)
	return nil
}

func (n *fakeNotifier) Publish(_ context.Context, sub *model.Submission) (int, int) {
	n.published = append(n.published, sub)
	return 1, 1
}

func newPipeline(store *fakeStore, notifier *fakeNotifier) *Pipeline {
	return NewPipeline(store, notifier, paging.Limits{Min: 3, Max: 10, Default: 5}, map[model.Kind]bool{
		model.KindContribution: true,
	})
}

func TestListPendingOldestFirst(t *testing.T) {
	store := newFakeStore(12)
	p := newPipeline(store, &fakeNotifier{})

	page, err := p.ListPending(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	assert.Equal(t, "sub-000", page.Items[0].ID)
	assert.True(t, page.Info.HasNext)
	assert.Equal(t, 3, page.Info.TotalPages)
	assert.Equal(t, 1, p.CurrentPage(1))

	last, err := p.ListPending(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Len(t, last.Items, 2)
	assert.False(t, last.Info.HasNext)
	assert.Equal(t, 3, p.CurrentPage(1))
}

func TestListPendingClampsAfterQueueShrinks(t *testing.T) {
	store := newFakeStore(12)
	p := newPipeline(store, &fakeNotifier{})

	_, err := p.ListPending(context.Background(), 1, 3)
	require.NoError(t, err)

	for _, id := range store.ids[4:] {
		store.subs[id].Status = model.StatusApproved
	}

	page, err := p.ListPending(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Info.CurrentPage)
	assert.Len(t, page.Items, 4)
}

func TestApproveNotifiesAndPublishes(t *testing.T) {
	store := newFakeStore(1)
	notifier := &fakeNotifier{}
	p := newPipeline(store, notifier)

	sub, err := p.Approve(context.Background(), 42, "sub-000", "great find")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)
	require.NotNil(t, sub.ReviewerID)
	assert.EqualValues(t, 42, *sub.ReviewerID)
	assert.Equal(t, "great find", sub.Note())

	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "sub-000", notifier.notified[0].ID)
	require.Len(t, notifier.published, 1)
}

func TestRejectNotifiesWithoutPublishing(t *testing.T) {
	store := newFakeStore(1)
	notifier := &fakeNotifier{}
	p := newPipeline(store, notifier)

	sub, err := p.Reject(context.Background(), 42, "sub-000", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, sub.Status)
	assert.Len(t, notifier.notified, 1)
	assert.Empty(t, notifier.published)
}

func TestConcurrentDecisionLoserGetsConflict(t *testing.T) {
	store := newFakeStore(1)
	notifier := &fakeNotifier{}
	p := newPipeline(store, notifier)

	sub, err := p.Approve(context.Background(), 42, "sub-000", "ok")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)

	_, err = p.Reject(context.Background(), 43, "sub-000", "spam")
	assert.ErrorIs(t, err, model.ErrConflict)

	// the loser's attempt leaves no trace: the record keeps the winner's
	// decision and the submitter hears about it exactly once
	final, err := p.ViewDetail(context.Background(), "sub-000")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, final.Status)
	assert.Equal(t, "ok", final.Note())
	require.NotNil(t, final.ReviewerID)
	assert.EqualValues(t, 42, *final.ReviewerID)
	assert.Len(t, notifier.notified, 1)
}

func TestDecisionFollowUpsSurviveReadOutage(t *testing.T) {
	store := newFakeStore(1)
	notifier := &fakeNotifier{}
	p := newPipeline(store, notifier)

	// Reads fail right after the transition commits; the follow-ups must run
	// off the record the transition itself returned.
	store.getErr = fmt.Errorf("db down")

	sub, err := p.Approve(context.Background(), 42, "sub-000", "great find")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)
	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "great find", notifier.notified[0].Note())
	assert.Len(t, notifier.published, 1)
}

func TestTransientDecideErrorIsNotConflict(t *testing.T) {
	store := newFakeStore(1)
	notifier := &fakeNotifier{}
	p := newPipeline(store, notifier)

	store.decideErr = fmt.Errorf("connection reset")

	_, err := p.Approve(context.Background(), 42, "sub-000", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrConflict)
	assert.Empty(t, notifier.notified, "no side effects until the transition commits")

	// The outage clears and the same decision goes through untouched.
	store.decideErr = nil
	sub, err := p.Approve(context.Background(), 42, "sub-000", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, sub.Status)
	assert.Len(t, notifier.notified, 1)
}

func TestViewDetailUnknownID(t *testing.T) {
	p := newPipeline(newFakeStore(0), &fakeNotifier{})
	_, err := p.ViewDetail(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDecideUnknownID(t *testing.T) {
	p := newPipeline(newFakeStore(0), &fakeNotifier{})
	_, err := p.Approve(context.Background(), 42, "missing", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetPageSizeResetsToFirstPage(t *testing.T) {
	store := newFakeStore(20)
	p := newPipeline(store, &fakeNotifier{})

	_, err := p.ListPending(context.Background(), 1, 4)
	require.NoError(t, err)
	require.Equal(t, 4, p.CurrentPage(1))

	cfg := p.SetPageSize(1, 10)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 1, p.CurrentPage(1))
}
