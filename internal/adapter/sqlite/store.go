// Package sqlite persists fetched source bodies so a restarted service can
// serve the last known dataset without waiting on the network.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bodies (
  key TEXT PRIMARY KEY,
  body BLOB NOT NULL,
  fetched_at TEXT NOT NULL
);`

// Store is a body cache backed by a single SQLite file. It implements
// dataset.BodyStore.
type Store struct {
	conn *sql.DB
}

// Open creates the parent directory if needed, opens the database in WAL
// mode and ensures the schema exists.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the stored body for key. ok is false when nothing is stored.
func (s *Store) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	var (
		body      []byte
		fetchedAt string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM bodies WHERE key = ?`, key,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("read body %q: %w", key, err)
	}

	at, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("parse fetched_at %q: %w", fetchedAt, err)
	}
	return body, at, true, nil
}

// Put stores body for key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, body []byte, fetchedAt time.Time) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO bodies (key, body, fetched_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  body = excluded.body,
  fetched_at = excluded.fetched_at
`, key, body, fetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write body %q: %w", key, err)
	}
	return nil
}
