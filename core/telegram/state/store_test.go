package state

import (
	"sync"
	"testing"
	"time"

	"curatorbot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreBeginReplacesPriorFlow(t *testing.T) {
	s := NewStore(time.Minute)

	first := s.Begin(7, model.KindRequest)
	first.SetValue("title", "stale")
	_, ok := s.Update(7, func(sess *Session) { sess.SetValue("title", "stale") })
	require.True(t, ok)

	fresh := s.Begin(7, model.KindFeedback)
	assert.Equal(t, model.KindFeedback, fresh.Flow)
	assert.Empty(t, fresh.Fields, "new flow must not inherit values")
}

func TestStoreGetAbsent(t *testing.T) {
	s := NewStore(time.Minute)
	_, ok := s.Get(42)
	assert.False(t, ok)
	_, ok = s.Update(42, func(*Session) {})
	assert.False(t, ok)
}

func TestStoreUpdateMergesFields(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, model.KindContribution)

	_, ok := s.Update(1, func(sess *Session) { sess.SetValue("title", "Movie X") })
	require.True(t, ok)
	got, ok := s.Update(1, func(sess *Session) { sess.SetValue("content", "body") })
	require.True(t, ok)

	title, present := got.Value("title")
	require.True(t, present, "earlier fields must survive later updates")
	assert.Equal(t, "Movie X", title)
	assert.Len(t, got.Fields, 2)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, model.KindRequest)
	s.Update(1, func(sess *Session) { sess.SetValue("title", "original") })

	snap, ok := s.Get(1)
	require.True(t, ok)
	snap.SetValue("title", "mutated copy")

	again, ok := s.Get(1)
	require.True(t, ok)
	title, _ := again.Value("title")
	assert.Equal(t, "original", title)
}

func TestStoreClear(t *testing.T) {
	s := NewStore(time.Minute)
	s.Begin(1, model.KindRequest)
	s.Clear(1)
	assert.False(t, s.Active(1))
}

func TestStoreEvictsIdleSessions(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.Begin(1, model.KindRequest)
	time.Sleep(60 * time.Millisecond)
	_, ok := s.Get(1)
	assert.False(t, ok, "abandoned session should expire")
}

func TestStoreConcurrentUsersDoNotInterleave(t *testing.T) {
	s := NewStore(time.Minute)
	const users = 16
	const writes = 50

	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		s.Begin(u, model.KindRequest)
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				s.Update(user, func(sess *Session) {
					n, _ := sess.Value("n")
					sess.SetValue("n", n+"x")
				})
			}
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= users; u++ {
		sess, ok := s.Get(u)
		require.True(t, ok)
		n, _ := sess.Value("n")
		assert.Len(t, n, writes, "user %d lost writes", u)
	}
}
