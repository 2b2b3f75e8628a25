package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLiteStorePutGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "emb.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "m", "hello"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	want := []float32{0.25, -1.5, 3}
	if err := store.Put(ctx, "m", "hello", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, "m", "hello")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Different model is a different key
	if _, ok, _ := store.Get(ctx, "other", "hello"); ok {
		t.Fatal("vector leaked across model ids")
	}

	// Upsert replaces
	if err := store.Put(ctx, "m", "hello", []float32{9}); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, _, _ = store.Get(ctx, "m", "hello")
	if len(got) != 1 || got[0] != 9 {
		t.Fatalf("replaced vector = %v", got)
	}
	if n, err := store.Count(ctx, "m"); err != nil || n != 1 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "emb.db")

	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s1.Put(ctx, "m", "a", []float32{1, 2}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(path) // migrations must be a no-op now
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok, err := s2.Get(ctx, "m", "a"); err != nil || !ok {
		t.Fatalf("Get after reopen: ok=%v err=%v", ok, err)
	}
}

func TestDecodeVectorRejectsCorruptData(t *testing.T) {
	if _, err := decodeVector([]byte{1}); !errors.Is(err, ErrCorruptVector) {
		t.Fatalf("expected ErrCorruptVector, got %v", err)
	}
	bad := encodeVector([]float32{1, 2})
	if _, err := decodeVector(bad[:len(bad)-1]); !errors.Is(err, ErrCorruptVector) {
		t.Fatalf("expected ErrCorruptVector, got %v", err)
	}
}
