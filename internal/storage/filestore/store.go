// Package filestore persists the latest snapshot as a single JSON file,
// written atomically via a temp file and rename.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftwatch/driftwatch/internal/storage"
)

// Store is a file-backed storage.SnapshotStore holding one snapshot.
type Store struct {
	path string
}

// Open prepares the parent directory for the snapshot file.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Save writes the snapshot to a temp file in the same directory and renames
// it over the target, so readers never observe a partial write.
func (s *Store) Save(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file, or storage.ErrNoSnapshot when absent.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, storage.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return doc, nil
}

// Close is a no-op; the store holds no open handles.
func (s *Store) Close() error { return nil }
