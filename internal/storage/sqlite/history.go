// Package sqlite provides a SQLite-backed roll history store using modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/diceengine/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS roll_history (
	id          TEXT    PRIMARY KEY,
	actor       TEXT    NOT NULL,
	kind        TEXT    NOT NULL CHECK (kind IN ('roll', 'analysis')),
	expression  TEXT    NOT NULL,
	summary     TEXT    NOT NULL,
	total       REAL    NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_roll_history_actor_created
	ON roll_history (actor, created_at DESC);
`

// HistoryStore persists roll history in a SQLite file.
type HistoryStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Open opens (creating when absent) the SQLite database at path and ensures
// the roll_history schema exists.
//
// Precondition: path must be non-empty.
// Postcondition: Returns a ready HistoryStore or a non-nil error.
func Open(path string) (*HistoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating roll_history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database handle.
func (s *HistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts e.
//
// Postcondition: Returns the stored entry with ID and CreatedAt set.
// CreatedAt is truncated to millisecond precision.
func (s *HistoryStore) Append(ctx context.Context, e history.Entry) (history.Entry, error) {
	e, err := history.Prepare(e, time.Now())
	if err != nil {
		return history.Entry{}, err
	}
	e.CreatedAt = fromMillis(toMillis(e.CreatedAt))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO roll_history (id, actor, kind, expression, summary, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Actor, string(e.Kind), e.Expression, e.Summary, e.Total, toMillis(e.CreatedAt),
	)
	if err != nil {
		return history.Entry{}, fmt.Errorf("inserting history entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries for actor, newest first. Entries
// sharing a timestamp are ordered by insertion.
func (s *HistoryStore) Recent(ctx context.Context, actor string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		return []history.Entry{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor, kind, expression, summary, total, created_at
		 FROM roll_history
		 WHERE actor = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		actor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []history.Entry{}
	for rows.Next() {
		var (
			e         history.Entry
			id, kind  string
			createdAt int64
		)
		if err := rows.Scan(&id, &e.Actor, &kind, &e.Expression, &e.Summary, &e.Total, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing history id %q: %w", id, err)
		}
		e.Kind = history.Kind(kind)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}
