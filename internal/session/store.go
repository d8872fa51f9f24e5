package session

import (
	"context"
	"sync"
	"time"
)

// Store keeps live sessions keyed by ID. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

// NewStore creates a Store. Sessions not used for longer than idle are
// removed by Sweep; zero keeps sessions until End is called.
func NewStore(idle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Create starts a new, empty session.
func (s *Store) Create() *Session {
	sess := New(s.now())
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with the given ID and marks it active.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// End discards the session and its history. It reports whether the
// session existed.
func (s *Store) End(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep ends every idle session that is not processing a turn and returns
// the IDs it removed.
func (s *Store) Sweep() []string {
	if s.idle <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()

	var ended []string
	for id, sess := range s.sessions {
		if sess.Busy() || sess.LastActive().After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		ended = append(ended, id)
	}
	return ended
}

// RunSweeper calls Sweep every interval until ctx is done, passing removed
// IDs to onEvict when it is non-nil.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, onEvict func(ids []string)) {
	if s.idle <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ids := s.Sweep(); len(ids) > 0 && onEvict != nil {
				onEvict(ids)
			}
		}
	}
}
