// Package transcript keeps an operator-facing log of every turn in SQLite.
// The in-memory session history stays authoritative; this log is write-only
// from the chat path.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/docchat/internal/chat"
	"github.com/ziadkadry99/docchat/internal/db"
	"github.com/ziadkadry99/docchat/internal/session"
)

// Entry is one recorded turn.
type Entry struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Seq       int          `json:"seq"`
	Timestamp time.Time    `json:"timestamp"`
	Role      session.Role `json:"role"`
	Kind      chat.Kind    `json:"kind"`
	Content   string       `json:"content"`
}

// Store reads and writes transcript entries.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Log inserts e, assigning the ID, timestamp and the next sequence number
// within its session.
func (s *Store) Log(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_turns (id, session_id, seq, timestamp, role, kind, content)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM transcript_turns WHERE session_id = ?), ?, ?, ?, ?)`,
		e.ID,
		e.SessionID,
		e.SessionID,
		e.Timestamp.UTC().Format(time.DateTime),
		string(e.Role),
		string(e.Kind),
		e.Content,
	)
	if err != nil {
		return fmt.Errorf("inserting transcript entry: %w", err)
	}
	return nil
}

// QueryFilter controls which entries Query returns.
type QueryFilter struct {
	SessionID string
	Kind      chat.Kind
	Since     *time.Time
	Limit     int
	Offset    int
}

// Query returns matching entries, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := "SELECT id, session_id, seq, timestamp, role, kind, content FROM transcript_turns"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, session_id, seq DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteBefore removes all entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transcript_turns WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old transcript entries: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var (
		e          Entry
		ts         string
		role, kind string
	)
	if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &ts, &role, &kind, &e.Content); err != nil {
		return nil, err
	}
	e.Role = session.Role(role)
	e.Kind = chat.Kind(kind)

	if t, err := time.Parse(time.DateTime, ts); err == nil {
		e.Timestamp = t
	} else if t, err := time.Parse(time.RFC3339, ts); err == nil {
		e.Timestamp = t
	}
	return &e, nil
}

// Recorder logs turns as a chat.Observer. Write failures are logged and
// never affect the conversation.
type Recorder struct {
	store *Store
	log   zerolog.Logger
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store *Store, log zerolog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

func (r *Recorder) StateChanged(string, chat.State) {}

func (r *Recorder) TurnAppended(sessionID string, turn session.Turn, kind chat.Kind) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.store.Log(ctx, Entry{
		SessionID: sessionID,
		Role:      turn.Role,
		Kind:      kind,
		Content:   turn.Content,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("session", sessionID).Msg("recording transcript")
	}
}
