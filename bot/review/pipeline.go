// Package review drives the moderation queue: browsing pending submissions,
// opening details, and applying approve/reject decisions.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"curatorbot/core/logger"
	"curatorbot/core/paging"
	"curatorbot/model"
)

// pendingList identifies the per-moderator browse settings for the queue.
const pendingList = "pending"

// Store is the persistence surface the pipeline needs. Decide returns the
// updated record so follow-ups never depend on a second read.
type Store interface {
	ListByStatus(ctx context.Context, status model.Status, offset, limit int, sort paging.SortField, order paging.SortOrder) ([]model.Submission, int, error)
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	Decide(ctx context.Context, id string, status model.Status, reviewerID int64, note string) (*model.Submission, error)
}

// Notifier delivers decision outcomes.
type Notifier interface {
	NotifySubmitter(ctx context.Context, sub *model.Submission) error
	Publish(ctx context.Context, sub *model.Submission) (delivered, configured int)
}

// Pipeline owns the moderation queue end to end.
type Pipeline struct {
	subs        Store
	notifier    Notifier
	pager       *paging.Engine[model.Submission]
	publishable map[model.Kind]bool
}

// NewPipeline builds a pipeline. The queue is browsed oldest first so the
// longest-waiting submission surfaces on page one; publishable marks which
// kinds fan out to channels on approval.
func NewPipeline(subs Store, notifier Notifier, limits paging.Limits, publishable map[model.Kind]bool) *Pipeline {
	p := &Pipeline{subs: subs, notifier: notifier, publishable: publishable}
	p.pager = paging.NewEngine(limits, paging.BrowseConfig{
		PageSize: limits.Default,
		Sort:     paging.SortCreatedAt,
		Order:    paging.Asc,
	}, func(ctx context.Context, offset, limit int, sort paging.SortField, order paging.SortOrder) ([]model.Submission, int, error) {
		return subs.ListByStatus(ctx, model.StatusPending, offset, limit, sort, order)
	})
	return p
}

// ListPending returns one page of the pending queue for the moderator.
func (p *Pipeline) ListPending(ctx context.Context, moderatorID int64, page int) (paging.Page[model.Submission], error) {
	return p.pager.GetPage(ctx, moderatorID, pendingList, page)
}

// CurrentPage returns the queue page the moderator last viewed.
func (p *Pipeline) CurrentPage(moderatorID int64) int {
	return p.pager.CurrentPage(moderatorID, pendingList)
}

// SetPageSize adjusts the moderator's queue page size within the engine limits.
func (p *Pipeline) SetPageSize(moderatorID int64, size int) paging.BrowseConfig {
	return p.pager.SetPageSize(moderatorID, pendingList, size)
}

// ViewDetail loads one submission for the detail screen.
func (p *Pipeline) ViewDetail(ctx context.Context, id string) (*model.Submission, error) {
	return p.subs.GetByID(ctx, id)
}

// Approve decides a pending submission in the submitter's favor.
func (p *Pipeline) Approve(ctx context.Context, moderatorID int64, id, note string) (*model.Submission, error) {
	return p.decide(ctx, moderatorID, id, model.StatusApproved, note)
}

// Reject turns a pending submission down.
func (p *Pipeline) Reject(ctx context.Context, moderatorID int64, id, note string) (*model.Submission, error) {
	return p.decide(ctx, moderatorID, id, model.StatusRejected, note)
}

// decide applies the transition and, only when it actually happened, performs
// the follow-ups on the record the transition returned. A lost race (the
// record was already decided) surfaces model.ErrConflict with no notification
// or publication side effects.
func (p *Pipeline) decide(ctx context.Context, moderatorID int64, id string, status model.Status, note string) (*model.Submission, error) {
	sub, err := p.subs.Decide(ctx, id, status, moderatorID, note)
	if err != nil {
		if errors.Is(err, model.ErrConflict) || errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("review: decide %s: %w", id, err)
	}

	if err := p.notifier.NotifySubmitter(ctx, sub); err != nil {
		logger.Warn(ctx, "review", "submitter.notify_failed",
			slog.String("submission_id", id),
			slog.String("err", err.Error()),
		)
	}
	if status == model.StatusApproved && p.publishable[sub.Kind] {
		p.notifier.Publish(ctx, sub)
	}

	logger.Info(ctx, "review", "decision.applied",
		slog.String("submission_id", id),
		slog.String("status", string(status)),
		slog.Int64("moderator_id", moderatorID),
	)
	return sub, nil
}
