package contentstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/monokrome/foiacquire-sub003/internal/contentstore"
)

func openTestSQLiteIndex(t *testing.T) *contentstore.SQLiteIndex {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "content-index.db")
	idx, err := contentstore.OpenSQLiteIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLiteIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSQLiteIndex_InsertAndFind(t *testing.T) {
	idx := openTestSQLiteIndex(t)
	ctx := context.Background()

	entry := contentstore.IndexEntry{SHA256: "abc123", BLAKE3: "def456", Path: "ab/c-abc123.pdf", DedupIndex: 0}
	if err := idx.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, found, err := idx.Find(ctx, "abc123")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if got != entry {
		t.Errorf("Find = %+v, want %+v", got, entry)
	}
}

func TestSQLiteIndex_Find_NotFound(t *testing.T) {
	idx := openTestSQLiteIndex(t)
	_, found, err := idx.Find(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found {
		t.Error("found = true for missing hash, want false")
	}
}

func TestSQLiteIndex_Insert_DuplicateHashFails(t *testing.T) {
	idx := openTestSQLiteIndex(t)
	ctx := context.Background()

	entry := contentstore.IndexEntry{SHA256: "abc123", BLAKE3: "def456", Path: "ab/c-abc123.pdf"}
	if err := idx.Insert(ctx, entry); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := idx.Insert(ctx, entry); err == nil {
		t.Fatal("second Insert with same hash: expected error, got nil")
	}
}

func TestSQLiteIndex_PathTaken(t *testing.T) {
	idx := openTestSQLiteIndex(t)
	ctx := context.Background()

	taken, err := idx.PathTaken(ctx, "ab/c-abc123.pdf")
	if err != nil {
		t.Fatalf("PathTaken: %v", err)
	}
	if taken {
		t.Error("PathTaken = true before insert, want false")
	}

	if err := idx.Insert(ctx, contentstore.IndexEntry{SHA256: "abc123", BLAKE3: "def456", Path: "ab/c-abc123.pdf"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	taken, err = idx.PathTaken(ctx, "ab/c-abc123.pdf")
	if err != nil {
		t.Fatalf("PathTaken: %v", err)
	}
	if !taken {
		t.Error("PathTaken = false after insert, want true")
	}
}
