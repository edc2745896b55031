package document

import (
	"context"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// Store persists Documents and their version history.
type Store interface {
	// Create inserts a new document with its first version.
	Create(ctx context.Context, doc Document) (Document, failure.ClassifiedError)

	// Get fetches a document (with all versions, newest first) by id.
	Get(ctx context.Context, id string) (Document, failure.ClassifiedError)

	// GetBySourceURL fetches a document by its (sourceID, sourceURL) pair,
	// the natural key used to detect an existing document before
	// deciding whether a fetch is a new document or a new version.
	GetBySourceURL(ctx context.Context, sourceID, sourceURL string) (Document, bool, failure.ClassifiedError)

	// AddVersion appends version to the document's history unless its
	// content hashes match the current version (see Document.AddVersion).
	// Returns false when the add was a no-op.
	AddVersion(ctx context.Context, id string, version DocumentVersion) (bool, failure.ClassifiedError)

	// UpdateStatus transitions a document's processing status.
	UpdateStatus(ctx context.Context, id string, status Status) failure.ClassifiedError

	// FindVersionByHash looks up which document (if any) already has a
	// version with the given SHA-256 hash, for cross-document dedup.
	FindVersionByHash(ctx context.Context, sha256 string) (documentID string, found bool, err failure.ClassifiedError)
}
