package contentstore

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// SQLiteIndex is an Index backed by a single-writer SQLite database,
// sharing the storage approach of ratelimit.SQLiteBackend so the two
// can live side by side (or in the same database file) across process
// restarts.
type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLiteIndex(path string) (*SQLiteIndex, failure.ClassifiedError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseIndexFailure}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(contentIndexSchemaSQL); err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseIndexFailure}
	}
	return &SQLiteIndex{db: db}, nil
}

func (idx *SQLiteIndex) Close() error {
	return idx.db.Close()
}

const contentIndexSchemaSQL = `
CREATE TABLE IF NOT EXISTS content_index (
	sha256 TEXT PRIMARY KEY,
	blake3 TEXT NOT NULL,
	path TEXT NOT NULL,
	dedup_index INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_content_index_path ON content_index(path);
`

func (idx *SQLiteIndex) Find(ctx context.Context, sha256 string) (IndexEntry, bool, failure.ClassifiedError) {
	var entry IndexEntry
	err := idx.db.QueryRowContext(ctx, `
		SELECT sha256, blake3, path, dedup_index FROM content_index WHERE sha256 = ?
	`, sha256).Scan(&entry.SHA256, &entry.BLAKE3, &entry.Path, &entry.DedupIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return IndexEntry{}, false, nil
	}
	if err != nil {
		return IndexEntry{}, false, &StoreError{Message: err.Error(), Cause: ErrCauseIndexFailure}
	}
	return entry, true, nil
}

func (idx *SQLiteIndex) Insert(ctx context.Context, entry IndexEntry) failure.ClassifiedError {
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO content_index (sha256, blake3, path, dedup_index) VALUES (?, ?, ?, ?)
	`, entry.SHA256, entry.BLAKE3, entry.Path, entry.DedupIndex)
	if err != nil {
		return &StoreError{Message: err.Error(), Cause: ErrCauseIndexFailure, Retryable: false}
	}
	return nil
}

func (idx *SQLiteIndex) PathTaken(ctx context.Context, path string) (bool, failure.ClassifiedError) {
	var exists int
	err := idx.db.QueryRowContext(ctx, `SELECT 1 FROM content_index WHERE path = ? LIMIT 1`, path).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &StoreError{Message: err.Error(), Cause: ErrCauseIndexFailure}
	}
	return true, nil
}

var _ Index = (*SQLiteIndex)(nil)
