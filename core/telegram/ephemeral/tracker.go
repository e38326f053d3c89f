// Package ephemeral tracks transient preview messages (media previews,
// detail views) so they can be swept when the user navigates away.
package ephemeral

import (
	"context"
	"log/slog"
	"sync"

	"curatorbot/core/logger"
)

// Deleter is the single transport primitive cleanup depends on.
type Deleter interface {
	Delete(ctx context.Context, userID int64, messageID int) error
}

// Tracker keeps a per-user list of ephemeral message ids. It is shared by
// capture flows and moderator browsing, so it is keyed by user rather than
// tied to one capture session.
type Tracker struct {
	del Deleter

	mu      sync.Mutex
	tracked map[int64][]int
}

// NewTracker builds a Tracker deleting through del.
func NewTracker(del Deleter) *Tracker {
	return &Tracker{del: del, tracked: make(map[int64][]int)}
}

// Track records a message id for later cleanup.
func (t *Tracker) Track(userID int64, messageID int) {
	if messageID == 0 {
		return
	}
	t.mu.Lock()
	t.tracked[userID] = append(t.tracked[userID], messageID)
	t.mu.Unlock()
}

// Tracked returns a snapshot of the user's tracked ids.
func (t *Tracker) Tracked(userID int64) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.tracked[userID]...)
}

// Cleanup deletes every tracked message best-effort and unconditionally
// empties the list, even when every deletion failed. The list therefore never
// grows across repeated cleanup attempts.
func (t *Tracker) Cleanup(ctx context.Context, userID int64) {
	t.mu.Lock()
	ids := t.tracked[userID]
	delete(t.tracked, userID)
	t.mu.Unlock()

	for _, id := range ids {
		if err := t.del.Delete(ctx, userID, id); err != nil {
			logger.Warn(ctx, "tg.ephemeral", "cleanup.delete_failed",
				slog.Int64("user_id", userID),
				slog.Int("message_id", id),
				slog.String("err", err.Error()),
			)
		}
	}
}
