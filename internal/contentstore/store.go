package contentstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
	"github.com/monokrome/foiacquire-sub003/pkg/fileutil"
	"github.com/monokrome/foiacquire-sub003/pkg/hashutil"
)

// maxDedupAttempts bounds the directory-prefix deepening used to resolve a
// path collision between distinct content. Each attempt adds one hex
// character to the SHA-256 directory prefix (spec.md §4.7); 8 attempts
// covers collisions up to a 10-character prefix, far beyond plausible.
const maxDedupAttempts = 8

// WriteResult describes the outcome of writing (or deduplicating) a piece
// of content.
type WriteResult struct {
	// AbsolutePath is documentsDir joined with RelativePath.
	AbsolutePath string
	RelativePath string
	Hashes       hashutil.ContentHashes
	DedupIndex   int
	// Deduplicated is true when identical content was already indexed
	// under a different write and no new bytes were written to disk.
	Deduplicated bool
}

// Store is the content-addressed store: it hashes content with both
// SHA-256 and BLAKE3, deduplicates against a persisted Index, and writes
// new content under a deterministic path rooted at documentsDir.
// Generalizes the teacher's LocalResolver.writeAsset/findPathByHash from
// an in-memory hash->path map to a persisted index with collision
// handling.
type Store struct {
	index        Index
	documentsDir string
}

func New(index Index, documentsDir string) *Store {
	return &Store{index: index, documentsDir: documentsDir}
}

// FindExisting looks up an already-written version by its SHA-256 hash,
// without writing anything. Used by the download pipeline to dedup
// before committing a document_versions row.
func (s *Store) FindExisting(ctx context.Context, sha256 string) (WriteResult, bool, failure.ClassifiedError) {
	entry, found, err := s.index.Find(ctx, sha256)
	if err != nil || !found {
		return WriteResult{}, false, err
	}
	return WriteResult{
		AbsolutePath: filepath.Join(s.documentsDir, entry.Path),
		RelativePath: entry.Path,
		Hashes:       hashutil.ContentHashes{SHA256: entry.SHA256, BLAKE3: entry.BLAKE3},
		DedupIndex:   entry.DedupIndex,
		Deduplicated: true,
	}, true, nil
}

// Write hashes data, deduplicates against the index, and if the content
// is new, computes a deterministic path (deepening dedup_index to resolve
// any path collision with unrelated content), writes the file, and
// indexes it.
func (s *Store) Write(ctx context.Context, in PathInput, data []byte) (WriteResult, failure.ClassifiedError) {
	hashes := hashutil.ComputeContentHashes(data)
	in.Hashes = hashes

	if existing, found, err := s.FindExisting(ctx, hashes.SHA256); err != nil {
		return WriteResult{}, err
	} else if found {
		return existing, nil
	}

	relPath, dedupIndex, err := s.allocatePath(ctx, in)
	if err != nil {
		return WriteResult{}, err
	}
	in.DedupIndex = dedupIndex

	absPath := filepath.Join(s.documentsDir, relPath)
	if ferr := fileutil.EnsureDir(filepath.Dir(absPath)); ferr != nil {
		return WriteResult{}, &StoreError{Message: ferr.Error(), Cause: ErrCauseWriteFailure, Path: absPath}
	}

	if err := os.WriteFile(absPath, data, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return WriteResult{}, &StoreError{Message: err.Error(), Cause: cause, Retryable: retryable, Path: absPath}
	}

	if err := s.index.Insert(ctx, IndexEntry{
		SHA256: hashes.SHA256, BLAKE3: hashes.BLAKE3, Path: relPath, DedupIndex: dedupIndex,
	}); err != nil {
		// Another writer indexed the same hash between our FindExisting
		// check and this Insert. The winner's entry points at bytes
		// identical to ours (same content hash), so report this as a dedup
		// against whichever entry won rather than an error. The copy this
		// call already wrote to absPath stays on disk; when its path
		// differs from the winner's (a different filename or URL), no
		// index entry refers to it.
		if existing, found, ferr := s.FindExisting(ctx, hashes.SHA256); ferr == nil && found {
			return existing, nil
		}
		return WriteResult{}, err
	}

	return WriteResult{
		AbsolutePath: absPath,
		RelativePath: relPath,
		Hashes:       hashes,
		DedupIndex:   dedupIndex,
	}, nil
}

// allocatePath computes the deterministic path for in, deepening
// dedup_index until it lands on a path no other content already claims.
// Since the path is keyed off the content hash, a collision here means
// two distinct pieces of content share both a hash prefix and basename,
// astronomically unlikely but handled deterministically rather than
// assumed away.
func (s *Store) allocatePath(ctx context.Context, in PathInput) (string, int, failure.ClassifiedError) {
	for dedupIndex := 0; dedupIndex <= maxDedupAttempts; dedupIndex++ {
		in.DedupIndex = dedupIndex
		relPath := ComputeStoragePath(in)

		taken, err := s.index.PathTaken(ctx, relPath)
		if err != nil {
			return "", 0, err
		}
		if !taken {
			return relPath, dedupIndex, nil
		}
	}
	return "", 0, &StoreError{
		Message: "exhausted dedup_index attempts without finding a free path",
		Cause:   ErrCausePathError,
	}
}

// Resolve returns the absolute path for a previously-indexed version
// given its stored (possibly legacy) path, without touching the index.
func (s *Store) Resolve(storedPath string, in PathInput) string {
	return ResolvePath(s.documentsDir, storedPath, in)
}
