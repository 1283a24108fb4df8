package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/survey-hub/survey-hub/internal/domain/session"
)

/*
Lock order: SessionStore.mu before sessionEntry.mu. Nothing acquires the
store lock while holding an entry lock. The in-flight guard is an atomic
on the entry so TrySetInFlight never waits on a mutex.
*/

type sessionEntry struct {
	mu       sync.Mutex
	sess     *session.Session
	removed  bool
	inFlight atomic.Bool
}

// SessionStore is the in-process session.Store.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
	root    string
	ttl     time.Duration
}

func NewSessionStore(rootStepID string, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
		root:    rootStepID,
		ttl:     ttl,
	}
}

func (s *SessionStore) GetOrCreate(_ context.Context, userID string, now time.Time) (*session.Session, error) {
	for {
		e := s.loadOrAddEntry(userID)
		e.mu.Lock()
		if e.removed {
			// lost a race with Sweep; the entry is gone from the map
			e.mu.Unlock()
			continue
		}
		if e.sess == nil || e.sess.IsExpired(now, s.ttl) {
			e.sess = session.New(userID, s.root, now)
		} else {
			e.sess.LastActivityAt = now
		}
		out := e.sess.Clone()
		out.InFlight = e.inFlight.Load()
		e.mu.Unlock()
		return out, nil
	}
}

func (s *SessionStore) TrySetInFlight(_ context.Context, userID string) (bool, error) {
	e := s.lookup(userID)
	if e == nil {
		return false, session.ErrNotFound
	}
	return e.inFlight.CompareAndSwap(false, true), nil
}

func (s *SessionStore) ClearInFlight(_ context.Context, userID string) error {
	e := s.lookup(userID)
	if e == nil {
		return session.ErrNotFound
	}
	e.inFlight.Store(false)
	return nil
}

func (s *SessionStore) RecordAnswer(_ context.Context, userID, key, value string) error {
	return s.mutate(userID, func(sess *session.Session) {
		sess.Answers[key] = value
	})
}

func (s *SessionStore) Advance(_ context.Context, userID, nextStepID string) error {
	return s.mutate(userID, func(sess *session.Session) {
		sess.CurrentStepID = nextStepID
	})
}

func (s *SessionStore) Reset(_ context.Context, userID string, now time.Time) error {
	return s.mutate(userID, func(sess *session.Session) {
		sess.CurrentStepID = s.root
		sess.Answers = map[string]string{}
		sess.LastActivityAt = now
	})
}

func (s *SessionStore) SetDisplayName(_ context.Context, userID, name string) error {
	return s.mutate(userID, func(sess *session.Session) {
		sess.DisplayName = name
	})
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a
// transition in flight are left for the next pass.
func (s *SessionStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	removed := 0
	for _, k := range keys {
		s.mu.Lock()
		e, ok := s.entries[k]
		if ok {
			e.mu.Lock()
			if !e.inFlight.Load() && (e.sess == nil || e.sess.IsExpired(now, s.ttl)) {
				e.removed = true
				delete(s.entries, k)
				removed++
			}
			e.mu.Unlock()
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of tracked sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of a user's session without refreshing it.
func (s *SessionStore) Snapshot(userID string) (*session.Session, bool) {
	e := s.lookup(userID)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil || e.removed {
		return nil, false
	}
	out := e.sess.Clone()
	out.InFlight = e.inFlight.Load()
	return out, true
}

func (s *SessionStore) mutate(userID string, fn func(*session.Session)) error {
	e := s.lookup(userID)
	if e == nil {
		return session.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil || e.removed {
		return session.ErrNotFound
	}
	fn(e.sess)
	return nil
}

func (s *SessionStore) lookup(userID string) *sessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[userID]
}

func (s *SessionStore) loadOrAddEntry(userID string) *sessionEntry {
	if e := s.lookup(userID); e != nil {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[userID]; ok {
		return e
	}
	e := &sessionEntry{}
	s.entries[userID] = e
	return e
}
