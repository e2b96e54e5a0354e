// Package storage defines the snapshot persistence port. Snapshots are
// opaque JSON documents; the adapters never inspect them.
package storage

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists and retrieves serialized subsystem state. Load
// returns the most recent snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, doc []byte) error
	Load(ctx context.Context) ([]byte, error)
	Close() error
}

// Noop discards saves and always reports no snapshot.
type Noop struct{}

func (Noop) Save(context.Context, []byte) error { return nil }
func (Noop) Load(context.Context) ([]byte, error) {
	return nil, ErrNoSnapshot
}
func (Noop) Close() error { return nil }
