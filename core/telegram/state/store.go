// Package state provides the per-user session store backing multi-step
// capture flows. Sessions expire after an inactivity timeout so abandoned
// flows never accumulate.
package state

import (
	"strconv"
	"sync"
	"time"

	"curatorbot/model"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL bounds how long an untouched session survives.
const DefaultTTL = 30 * time.Minute

// Store is a concurrency-safe keyed session store. Reads return snapshots;
// mutations for a single user are serialized through a per-user lock while
// different users proceed independently.
type Store struct {
	ttl      time.Duration
	sessions *gocache.Cache

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewStore builds a Store evicting sessions idle longer than ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: gocache.New(ttl, ttl/2),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Begin starts a fresh session for the user, discarding any prior flow.
func (s *Store) Begin(userID int64, flow model.Kind) *Session {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := &Session{
		UserID:  userID,
		Flow:    flow,
		Fields:  make(map[string]string),
		Touched: time.Now(),
	}
	s.sessions.Set(key(userID), sess, s.ttl)
	return sess.clone()
}

// Get returns a snapshot of the user's session. Absence is not an error;
// callers treat it as "flow not active".
func (s *Store) Get(userID int64) (*Session, bool) {
	v, ok := s.sessions.Get(key(userID))
	if !ok {
		return nil, false
	}
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return v.(*Session).clone(), true
}

// Update applies fn to the user's session under its lock and refreshes the
// inactivity deadline. It returns the resulting snapshot, or false when no
// session is active.
func (s *Store) Update(userID int64, fn func(*Session)) (*Session, bool) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.sessions.Get(key(userID))
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	fn(sess)
	sess.Touched = time.Now()
	s.sessions.Set(key(userID), sess, s.ttl)
	return sess.clone(), true
}

// Clear drops the user's session, if any.
func (s *Store) Clear(userID int64) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	s.sessions.Delete(key(userID))
}

// Active reports whether the user currently has a live session.
func (s *Store) Active(userID int64) bool {
	_, ok := s.sessions.Get(key(userID))
	return ok
}

func (s *Store) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
