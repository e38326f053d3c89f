package ephemeral

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDeleter struct {
	deleted []int
	fail    bool
}

func (f *fakeDeleter) Delete(_ context.Context, _ int64, messageID int) error {
	if f.fail {
		return errors.New("message to delete not found")
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func TestTrackAndCleanup(t *testing.T) {
	del := &fakeDeleter{}
	tr := NewTracker(del)
	tr.Track(1, 100)
	tr.Track(1, 101)
	tr.Track(2, 200)

	tr.Cleanup(context.Background(), 1)

	assert.ElementsMatch(t, []int{100, 101}, del.deleted)
	assert.Empty(t, tr.Tracked(1))
	assert.Equal(t, []int{200}, tr.Tracked(2), "other users are untouched")
}

func TestCleanupClearsListEvenWhenEveryDeleteFails(t *testing.T) {
	del := &fakeDeleter{fail: true}
	tr := NewTracker(del)
	tr.Track(1, 100)
	tr.Track(1, 101)

	tr.Cleanup(context.Background(), 1)
	assert.Empty(t, tr.Tracked(1))

	// A second sweep must not retry the failed ids.
	del.fail = false
	tr.Cleanup(context.Background(), 1)
	assert.Empty(t, del.deleted)
}

func TestTrackIgnoresZeroID(t *testing.T) {
	tr := NewTracker(&fakeDeleter{})
	tr.Track(1, 0)
	assert.Empty(t, tr.Tracked(1))
}
