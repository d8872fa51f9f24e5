// Package session holds the per-browser conversation state: an append-only
// history of turns and the store that creates and discards sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are never modified
// after they are appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var (
	// ErrNotFound is returned for an unknown or already ended session.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when a turn is submitted while another one is
	// still being processed for the same session.
	ErrBusy = errors.New("session is busy processing a previous message")
)

// History is the ordered, append-only list of turns of one session.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append adds t to the end of the history.
func (h *History) Append(t Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, t)
	h.mu.Unlock()
}

// All returns a copy of the turns in chronological order.
func (h *History) All() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Session is one user's conversation.
type Session struct {
	ID        string
	CreatedAt time.Time

	history History

	mu         sync.Mutex
	busy       bool
	lastActive time.Time
}

// New returns a session with a fresh UUID. Most callers use Store.Create.
func New(now time.Time) *Session {
	return &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		lastActive: now,
	}
}

// History returns the session's conversation history.
func (s *Session) History() *History { return &s.history }

// Begin marks the session as processing a turn. It returns ErrBusy if a turn
// is already in flight; callers must call Done after a successful Begin.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

// Done releases the session after Begin.
func (s *Session) Done() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// LastActive returns the last time the session was looked up.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
