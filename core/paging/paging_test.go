package paging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceFetcher(items []int) Fetcher[int] {
	return func(_ context.Context, offset, limit int, _ SortField, _ SortOrder) ([]int, int, error) {
		total := len(items)
		if offset >= total {
			return nil, total, nil
		}
		end := offset + limit
		if end > total {
			end = total
		}
		return items[offset:end], total, nil
	}
}

func numbered(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func testEngine(items []int, size int) *Engine[int] {
	return NewEngine(
		Limits{Min: 1, Max: 50, Default: size},
		BrowseConfig{PageSize: size, Sort: SortCreatedAt, Order: Asc},
		sliceFetcher(items),
	)
}

func TestGetPageTwelveItemsSizeFive(t *testing.T) {
	e := testEngine(numbered(12), 5)
	ctx := context.Background()

	p1, err := e.GetPage(ctx, 1, "pending", 1)
	require.NoError(t, err)
	assert.Len(t, p1.Items, 5)
	assert.True(t, p1.Info.HasNext)
	assert.False(t, p1.Info.HasPrev)
	assert.Equal(t, 3, p1.Info.TotalPages)
	assert.Equal(t, 1, p1.Info.StartItem)
	assert.Equal(t, 5, p1.Info.EndItem)

	p3, err := e.GetPage(ctx, 1, "pending", 3)
	require.NoError(t, err)
	assert.Len(t, p3.Items, 2)
	assert.False(t, p3.Info.HasNext)
	assert.True(t, p3.Info.HasPrev)
	assert.Equal(t, 11, p3.Info.StartItem)
	assert.Equal(t, 12, p3.Info.EndItem)
}

func TestGetPageCoversAllItemsExactlyOnce(t *testing.T) {
	for _, tc := range []struct{ total, size int }{
		{0, 5}, {1, 5}, {5, 5}, {6, 5}, {23, 7}, {100, 10},
	} {
		e := testEngine(numbered(tc.total), tc.size)
		seen := 0
		page := 1
		for {
			p, err := e.GetPage(context.Background(), 1, "l", page)
			require.NoError(t, err)
			seen += len(p.Items)
			assert.Equal(t, page == p.Info.TotalPages, !p.Info.HasNext,
				"hasNext must be false exactly on the last page (total=%d size=%d page=%d)", tc.total, tc.size, page)
			if !p.Info.HasNext {
				break
			}
			page++
		}
		assert.Equal(t, tc.total, seen, "total=%d size=%d", tc.total, tc.size)
	}
}

func TestGetPageClampsWhenDataShrank(t *testing.T) {
	items := numbered(12)
	calls := 0
	fetch := func(ctx context.Context, offset, limit int, f SortField, o SortOrder) ([]int, int, error) {
		calls++
		return sliceFetcher(items)(ctx, offset, limit, f, o)
	}
	e := NewEngine(Limits{Min: 1, Max: 50, Default: 5}, BrowseConfig{PageSize: 5}, fetch)

	// User sits on page 3; the queue shrinks to 4 items behind their back.
	_, err := e.GetPage(context.Background(), 1, "l", 3)
	require.NoError(t, err)
	items = numbered(4)

	calls = 0
	p, err := e.GetPage(context.Background(), 1, "l", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "clamp must refetch exactly once, never loop")
	assert.Equal(t, 1, p.Info.CurrentPage)
	assert.Len(t, p.Items, 4)
}

func TestGetPageEmptySource(t *testing.T) {
	e := testEngine(nil, 5)
	p, err := e.GetPage(context.Background(), 1, "l", 1)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, 1, p.Info.TotalPages)
	assert.False(t, p.Info.HasNext)
	assert.False(t, p.Info.HasPrev)
	assert.Zero(t, p.Info.StartItem)
}

func TestConfigChangesResetPage(t *testing.T) {
	e := testEngine(numbered(30), 5)
	ctx := context.Background()

	_, err := e.GetPage(ctx, 9, "l", 4)
	require.NoError(t, err)
	require.Equal(t, 4, e.CurrentPage(9, "l"))

	e.SetSort(9, "l", SortReviewedAt, Desc)
	assert.Equal(t, 1, e.CurrentPage(9, "l"))

	_, err = e.GetPage(ctx, 9, "l", 3)
	require.NoError(t, err)
	e.SetPageSize(9, "l", 10)
	assert.Equal(t, 1, e.CurrentPage(9, "l"))

	_, err = e.GetPage(ctx, 9, "l", 2)
	require.NoError(t, err)
	e.SetVisible(9, "l", []string{"title"})
	assert.Equal(t, 1, e.CurrentPage(9, "l"))
}

func TestPageSizeBounded(t *testing.T) {
	e := NewEngine(Limits{Min: 3, Max: 10, Default: 5}, BrowseConfig{PageSize: 5}, sliceFetcher(numbered(30)))
	assert.Equal(t, 10, e.SetPageSize(1, "l", 99).PageSize)
	assert.Equal(t, 3, e.SetPageSize(1, "l", 1).PageSize)
}

func TestConfigsAreIndependentPerUser(t *testing.T) {
	e := testEngine(numbered(30), 5)
	e.SetPageSize(1, "l", 10)
	p, err := e.GetPage(context.Background(), 2, "l", 1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Config.PageSize, "user 2 keeps the default config")
}
