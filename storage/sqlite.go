package storage

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
CREATE TABLE IF NOT EXISTS browser_state (
  namespace  TEXT NOT NULL,
  key        TEXT NOT NULL,
  value      TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (namespace, key)
);`

// SQLite persists namespaces in a single table so browser state survives
// restarts.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("[OpenSQLite] create state dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[OpenSQLite] open %s: %w", path, err)
	}
	// One connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an open database and applies the schema.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("[NewSQLite] apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Namespace(name string) Store {
	return &sqliteStore{db: s.db, ns: name}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteStore struct {
	db *sql.DB
	ns string
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM browser_state WHERE namespace = ? AND key = ?`, s.ns, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get state[%s/%s]: %w", s.ns, key, err)
	}
	return value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO browser_state (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.ns, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set state[%s/%s]: %w", s.ns, key, err)
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM browser_state WHERE namespace = ? AND key = ?`, s.ns, key)
	if err != nil {
		return fmt.Errorf("failed to delete state[%s/%s]: %w", s.ns, key, err)
	}
	return nil
}

// Prune deletes namespaces untouched since before.
func (s *SQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM browser_state WHERE namespace IN (
		  SELECT namespace FROM browser_state GROUP BY namespace HAVING MAX(updated_at) < ?
		)`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune state: %w", err)
	}
	return res.RowsAffected()
}
