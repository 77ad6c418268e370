// Package history records every dispatched command and its outcome in a
// local SQLite database so the user can review what the assistant did.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one dispatched command.
type Entry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Query      string    `json:"query"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
}

// Store persists entries in SQLite.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
	recent *sql.Stmt
}

const schema = `
CREATE TABLE IF NOT EXISTS commands (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	query TEXT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	http_status INTEGER NOT NULL DEFAULT 200
);
CREATE INDEX IF NOT EXISTS idx_commands_ts ON commands(ts);
`

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepare(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing history statements: %w", err)
	}
	return s, nil
}

func (s *Store) prepare() error {
	var err error
	s.insert, err = s.db.Prepare(`
		INSERT INTO commands (ts, query, kind, status, message, http_status)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	s.recent, err = s.db.Prepare(`
		SELECT id, ts, query, kind, status, message, http_status
		FROM commands ORDER BY id DESC LIMIT ?
	`)
	return err
}

// Record inserts e. A zero Timestamp is replaced with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if _, err := s.insert.ExecContext(ctx,
		e.Timestamp.UnixMilli(), e.Query, e.Kind, e.Status, e.Message, e.HTTPStatus,
	); err != nil {
		return fmt.Errorf("recording command: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.recent.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.Query, &e.Kind, &e.Status, &e.Message, &e.HTTPStatus); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if s.recent != nil {
		s.recent.Close()
	}
	return s.db.Close()
}
