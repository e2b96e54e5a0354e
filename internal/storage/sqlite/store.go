// Package sqlite persists snapshots in a local SQLite database. Each save
// appends a row; loads read the newest. Old rows are pruned past a fixed
// retention count.
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

	"github.com/driftwatch/driftwatch/internal/storage"
)

// retainedSnapshots bounds how many historical snapshots a database keeps.
const retainedSnapshots = 20

// Store is a SQLite-backed storage.SnapshotStore.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed and
// prepares the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at TEXT NOT NULL,
	doc TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save appends one snapshot row and prunes rows past the retention count.
func (s *Store) Save(ctx context.Context, doc []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (saved_at, doc) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), string(doc))
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`,
		retainedSnapshots)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}

// Load returns the newest snapshot, or storage.ErrNoSnapshot when the table
// is empty.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return []byte(doc), nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
