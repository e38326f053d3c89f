package storage

import (
	"context"
	"fmt"
	"log/slog"

	"curatorbot/core/logger"
	"curatorbot/model"

	"github.com/jmoiron/sqlx"
)

// CategoryStore reads the category directory used by capture flows.
type CategoryStore struct {
	db *sqlx.DB
}

// NewCategoryStore wraps the connection pool.
func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// ListActive returns active categories ordered for display.
func (s *CategoryStore) ListActive(ctx context.Context) ([]model.Category, error) {
	cats := []model.Category{}
	err := s.db.SelectContext(ctx, &cats, `
		SELECT id, name, active, sort_order
		FROM categories
		WHERE active
		ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list categories: %w", err)
	}
	return cats, nil
}

// Seed inserts the configured category names when the directory is empty.
// Existing rows are never modified; the directory is owned by operators.
func (s *CategoryStore) Seed(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT count(*) FROM categories`); err != nil {
		return fmt.Errorf("storage: count categories: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i, name := range names {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO categories (name, active, sort_order) VALUES ($1, TRUE, $2)`,
			name, i,
		); err != nil {
			return fmt.Errorf("storage: seed category %q: %w", name, err)
		}
	}
	logger.Info(ctx, "storage", "categories.seeded", slog.Int("count", len(names)))
	return nil
}
