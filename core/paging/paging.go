// Package paging turns a counted data source and per-user browse settings
// into page payloads. The engine holds no data itself; the only mutable state
// is each user's BrowseConfig, so one engine serves any number of users.
package paging

import (
	"context"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
)

// SortField enumerates the columns a browse may be ordered by.
type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortUpdatedAt  SortField = "updated_at"
	SortReviewedAt SortField = "reviewed_at"
)

// SortOrder is the browse direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Limits bounds the configurable page size.
type Limits struct {
	Min     int
	Max     int
	Default int
}

// BrowseConfig is a user's settings for one browsed list. It is created
// lazily on first use and survives until changed or process restart.
type BrowseConfig struct {
	PageSize int
	Sort     SortField
	Order    SortOrder
	Visible  []string

	page int
}

// PageInfo is derived metadata for a rendered page.
type PageInfo struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PageSize    int
	HasPrev     bool
	HasNext     bool
	StartItem   int
	EndItem     int
}

// Page is the payload returned for one browse request.
type Page[T any] struct {
	Items  []T
	Info   PageInfo
	Config BrowseConfig
}

// Fetcher loads one window of items plus the total count.
type Fetcher[T any] func(ctx context.Context, offset, limit int, sort SortField, order SortOrder) ([]T, int, error)

// Engine computes pages over a Fetcher.
type Engine[T any] struct {
	limits   Limits
	defaults BrowseConfig
	fetch    Fetcher[T]
	configs  *gocache.Cache
}

// NewEngine builds an engine with the given size limits and defaults.
func NewEngine[T any](limits Limits, defaults BrowseConfig, fetch Fetcher[T]) *Engine[T] {
	if limits.Min <= 0 {
		limits.Min = 1
	}
	if limits.Max < limits.Min {
		limits.Max = limits.Min
	}
	defaults.PageSize = clamp(defaults.PageSize, limits)
	if defaults.Sort == "" {
		defaults.Sort = SortCreatedAt
	}
	if defaults.Order == "" {
		defaults.Order = Asc
	}
	return &Engine[T]{
		limits:   limits,
		defaults: defaults,
		fetch:    fetch,
		configs:  gocache.New(gocache.NoExpiration, 0),
	}
}

// GetPage fetches the requested page. A page beyond the end (the data shrank
// underneath the user) is clamped to the last page and refetched exactly once.
func (e *Engine[T]) GetPage(ctx context.Context, userID int64, listID string, page int) (Page[T], error) {
	cfg := e.config(userID, listID)
	if page < 1 {
		page = 1
	}

	items, total, err := e.fetch(ctx, (page-1)*cfg.PageSize, cfg.PageSize, cfg.Sort, cfg.Order)
	if err != nil {
		return Page[T]{}, fmt.Errorf("paging: fetch: %w", err)
	}
	totalPages := pageCount(total, cfg.PageSize)
	if page > totalPages {
		page = totalPages
		items, total, err = e.fetch(ctx, (page-1)*cfg.PageSize, cfg.PageSize, cfg.Sort, cfg.Order)
		if err != nil {
			return Page[T]{}, fmt.Errorf("paging: refetch: %w", err)
		}
		totalPages = pageCount(total, cfg.PageSize)
	}

	cfg.page = page
	e.store(userID, listID, cfg)

	offset := (page - 1) * cfg.PageSize
	info := PageInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PageSize:    cfg.PageSize,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
	if len(items) > 0 {
		info.StartItem = offset + 1
		info.EndItem = offset + len(items)
	}
	return Page[T]{Items: items, Info: info, Config: cfg}, nil
}

// CurrentPage returns the page the user last viewed for listID (1 if none).
func (e *Engine[T]) CurrentPage(userID int64, listID string) int {
	cfg := e.config(userID, listID)
	if cfg.page < 1 {
		return 1
	}
	return cfg.page
}

// SetPageSize updates the user's page size, bounded to the engine limits,
// and resets the current page to 1.
func (e *Engine[T]) SetPageSize(userID int64, listID string, size int) BrowseConfig {
	cfg := e.config(userID, listID)
	cfg.PageSize = clamp(size, e.limits)
	cfg.page = 1
	e.store(userID, listID, cfg)
	return cfg
}

// SetSort updates sort field and order and resets the current page to 1.
func (e *Engine[T]) SetSort(userID int64, listID string, field SortField, order SortOrder) BrowseConfig {
	cfg := e.config(userID, listID)
	cfg.Sort = field
	cfg.Order = order
	cfg.page = 1
	e.store(userID, listID, cfg)
	return cfg
}

// SetVisible replaces the visible field set and resets the current page to 1.
func (e *Engine[T]) SetVisible(userID int64, listID string, fields []string) BrowseConfig {
	cfg := e.config(userID, listID)
	cfg.Visible = append([]string(nil), fields...)
	cfg.page = 1
	e.store(userID, listID, cfg)
	return cfg
}

func (e *Engine[T]) config(userID int64, listID string) BrowseConfig {
	if v, ok := e.configs.Get(configKey(userID, listID)); ok {
		return v.(BrowseConfig)
	}
	return e.defaults
}

func (e *Engine[T]) store(userID int64, listID string, cfg BrowseConfig) {
	e.configs.Set(configKey(userID, listID), cfg, gocache.NoExpiration)
}

func configKey(userID int64, listID string) string {
	return fmt.Sprintf("%d:%s", userID, listID)
}

func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return pages
}

func clamp(n int, l Limits) int {
	if n < l.Min {
		if l.Default >= l.Min && l.Default <= l.Max && n <= 0 {
			return l.Default
		}
		return l.Min
	}
	if n > l.Max {
		return l.Max
	}
	return n
}
