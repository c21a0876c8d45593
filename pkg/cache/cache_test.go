package cache

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMiss(t *testing.T) {
	store := openTempStore(t)
	if _, err := store.Get("never compiled"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get on empty store = %v, want ErrMiss", err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTempStore(t)
	source := "let x = 1;"
	image := []byte{0xAA, 0xBB, 0xCC}

	if err := store.Put(source, "compile-1", image); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	entry, err := store.Get(source)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.CompilationID != "compile-1" {
		t.Errorf("CompilationID = %q, want compile-1", entry.CompilationID)
	}
	if string(entry.Image) != string(image) {
		t.Errorf("Image = %v, want %v", entry.Image, image)
	}
	if entry.SourceHash != Key(source) {
		t.Errorf("SourceHash = %q, want %q", entry.SourceHash, Key(source))
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	store := openTempStore(t)
	source := "let x = 1;"

	if err := store.Put(source, "first", []byte{1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(source, "second", []byte{2}); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	entry, err := store.Get(source)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry.CompilationID != "second" || len(entry.Image) != 1 || entry.Image[0] != 2 {
		t.Errorf("entry = %+v, want the replacement", entry)
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestDifferentSourcesDifferentKeys(t *testing.T) {
	store := openTempStore(t)
	if err := store.Put("let x = 1;", "a", []byte{1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := store.Get("let x = 2;"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get of different source = %v, want ErrMiss", err)
	}
}

func TestDelete(t *testing.T) {
	store := openTempStore(t)
	source := "let x = 1;"
	if err := store.Put(source, "a", []byte{1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete(source); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(source); !errors.Is(err, ErrMiss) {
		t.Errorf("Get after Delete = %v, want ErrMiss", err)
	}
	if err := store.Delete(source); err != nil {
		t.Errorf("Delete of absent entry = %v, want nil", err)
	}
}

func TestPurge(t *testing.T) {
	store := openTempStore(t)
	for i, source := range []string{"a;", "b;", "c;"} {
		if err := store.Put(source, "id", []byte{byte(i)}); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}
	if err := store.Purge(); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Len after Purge = %d, want 0", n)
	}
}

func TestKeyIsStableHex(t *testing.T) {
	k1, k2 := Key("same"), Key("same")
	if k1 != k2 {
		t.Errorf("Key not stable: %q vs %q", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("Key length = %d, want 64 hex chars", len(k1))
	}
	if Key("other") == k1 {
		t.Error("different sources share a key")
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Put("persisted;", "id-1", []byte{9}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	entry, err := reopened.Get("persisted;")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if entry.CompilationID != "id-1" {
		t.Errorf("CompilationID = %q, want id-1", entry.CompilationID)
	}
}
