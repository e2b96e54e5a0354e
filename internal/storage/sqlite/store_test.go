package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/driftwatch/driftwatch/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "driftwatch.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveThenLoadNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := s.Save(ctx, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("Load = %s, want the newest snapshot", got)
	}
}

func TestLoadWithoutSnapshot(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load(context.Background()); !errors.Is(err, storage.ErrNoSnapshot) {
		t.Errorf("Load error = %v, want ErrNoSnapshot", err)
	}
}

func TestRetentionPrunesOldSnapshots(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < retainedSnapshots+10; i++ {
		if err := s.Save(ctx, []byte(fmt.Sprintf(`{"v":%d}`, i))); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != retainedSnapshots {
		t.Errorf("retained %d snapshots, want %d", count, retainedSnapshots)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := fmt.Sprintf(`{"v":%d}`, retainedSnapshots+9)
	if string(got) != want {
		t.Errorf("Load = %s, want %s", got, want)
	}
}
