package filestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/driftwatch/driftwatch/internal/storage"
)

func TestSaveThenLoad(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nested", "state.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	want := []byte(`{"hello":"world"}`)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Load = %s, want %s", got, want)
	}
}

func TestLoadWithoutSnapshot(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, storage.ErrNoSnapshot) {
		t.Errorf("Load error = %v, want ErrNoSnapshot", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
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
		t.Errorf("Load = %s, want the second snapshot", got)
	}
}
