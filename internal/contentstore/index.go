package contentstore

import (
	"context"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// IndexEntry is one persisted (hash pair -> path) mapping.
type IndexEntry struct {
	SHA256     string
	BLAKE3     string
	Path       string
	DedupIndex int
}

// Index persists the content-hash -> path mapping that drives content
// deduplication: a piece of content already written under one URL is
// never written again under another. Entries are keyed and looked up by
// SHA-256 alone: the BLAKE3 digest is stored with each entry but is not
// compared, and the file size is not recorded. Generalizes the teacher's
// LocalResolver.hashToPath in-memory map into a durable, crash-resumable
// index.
type Index interface {
	// Find returns the entry for sha256, if one has been recorded.
	Find(ctx context.Context, sha256 string) (IndexEntry, bool, failure.ClassifiedError)

	// Insert records a new hash -> path mapping. Returns a conflict error
	// if sha256 is already indexed; callers should Find first.
	Insert(ctx context.Context, entry IndexEntry) failure.ClassifiedError

	// PathTaken reports whether some entry already claims path, so the
	// caller can resolve a dedup_index collision (distinct content whose
	// computed path happens to coincide with an existing entry's).
	PathTaken(ctx context.Context, path string) (bool, failure.ClassifiedError)
}
