// Package storage implements the persistence collaborators on Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"curatorbot/core/logger"
	"curatorbot/core/paging"
	"curatorbot/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// sortColumns whitelists the ORDER BY targets; anything else falls back to
// created_at so user-chosen sort fields can never reach SQL unchecked.
var sortColumns = map[paging.SortField]string{
	paging.SortCreatedAt:  "created_at",
	paging.SortUpdatedAt:  "updated_at",
	paging.SortReviewedAt: "reviewed_at",
}

// SubmissionStore persists submissions. Records are append-only except for
// the single pending→decided transition.
type SubmissionStore struct {
	db *sqlx.DB
}

// NewSubmissionStore wraps the connection pool.
func NewSubmissionStore(db *sqlx.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// Create inserts a new pending submission and returns its generated id.
func (s *SubmissionStore) Create(ctx context.Context, sub *model.Submission) (string, error) {
	id := uuid.NewString()
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, kind, user_id, category_id, title, content, attachment, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		id, sub.Kind, sub.UserID, sub.CategoryID, sub.Title, sub.Content, sub.Attachment, model.StatusPending,
	)
	if err != nil {
		return "", fmt.Errorf("storage: create submission: %w", err)
	}
	logger.Debug(ctx, "storage", "submission.created",
		slog.String("submission_id", id),
		slog.String("kind", string(sub.Kind)),
		slog.Int64("user_id", sub.UserID),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

// GetByID loads one submission.
func (s *SubmissionStore) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	err := s.db.GetContext(ctx, &sub, `
		SELECT id, kind, user_id, category_id, title, content, attachment,
		       status, created_at, reviewed_at, reviewer_id, review_note
		FROM submissions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get submission: %w", err)
	}
	return &sub, nil
}

// ListByStatus returns one window of submissions plus the total count.
func (s *SubmissionStore) ListByStatus(
	ctx context.Context,
	status model.Status,
	offset, limit int,
	sort paging.SortField,
	order paging.SortOrder,
) ([]model.Submission, int, error) {
	column, ok := sortColumns[sort]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if order == paging.Desc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, kind, user_id, category_id, title, content, attachment,
		       status, created_at, reviewed_at, reviewer_id, review_note
		FROM submissions
		WHERE status = $1
		ORDER BY %s %s NULLS LAST, id
		OFFSET $2 LIMIT $3`, column, direction)

	items := []model.Submission{}
	if err := s.db.SelectContext(ctx, &items, query, status, offset, limit); err != nil {
		return nil, 0, fmt.Errorf("storage: list submissions: %w", err)
	}
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM submissions WHERE status = $1`, status); err != nil {
		return nil, 0, fmt.Errorf("storage: count submissions: %w", err)
	}
	return items, total, nil
}

// Decide applies an atomic pending→approved or pending→rejected transition
// and returns the updated record from the same statement, so follow-ups never
// depend on a read after the commit. A submission that is no longer pending
// yields model.ErrConflict and leaves the record untouched; an unknown id
// yields model.ErrNotFound.
func (s *SubmissionStore) Decide(ctx context.Context, id string, status model.Status, reviewerID int64, note string) (*model.Submission, error) {
	if !status.Decided() {
		return nil, fmt.Errorf("storage: decide: %q is not a terminal status", status)
	}
	noteVal := sql.NullString{String: note, Valid: note != ""}
	var sub model.Submission
	err := s.db.GetContext(ctx, &sub, `
		UPDATE submissions
		SET status = $2, reviewed_at = now(), reviewer_id = $3, review_note = $4, updated_at = now()
		WHERE id = $1 AND status = $5
		RETURNING id, kind, user_id, category_id, title, content, attachment,
		          status, created_at, reviewed_at, reviewer_id, review_note`,
		id, status, reviewerID, noteVal, model.StatusPending,
	)
	if errors.Is(err, sql.ErrNoRows) {
		_, gerr := s.GetByID(ctx, id)
		return nil, decideZeroRows(gerr)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: decide submission: %w", err)
	}
	logger.Info(ctx, "storage", "submission.decided",
		slog.String("submission_id", id),
		slog.String("status", string(status)),
		slog.Int64("reviewer_id", reviewerID),
	)
	return &sub, nil
}

// decideZeroRows classifies a zero-row decide from the follow-up read: the
// record exists but is already decided (conflict), is gone (not found), or the
// read itself failed, which must stay a retryable error rather than masquerade
// as a conflict.
func decideZeroRows(readErr error) error {
	switch {
	case readErr == nil:
		return model.ErrConflict
	case errors.Is(readErr, model.ErrNotFound):
		return model.ErrNotFound
	default:
		return fmt.Errorf("storage: decide disambiguation: %w", readErr)
	}
}
