package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// SQLiteStore is a Store backed by modernc.org/sqlite. Like
// crawlstore.SQLiteStore, it runs with a single writer connection so
// version insertion and document updates serialize naturally.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, failure.ClassifiedError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(documentSchemaSQL); err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const documentSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	source_url TEXT NOT NULL,
	extracted_text TEXT NOT NULL DEFAULT '',
	synopsis TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	discovery_method TEXT NOT NULL DEFAULT '',
	UNIQUE(source_id, source_url)
);

CREATE TABLE IF NOT EXISTS document_versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL REFERENCES documents(id),
	content_hash TEXT NOT NULL UNIQUE,
	content_hash_blake3 TEXT NOT NULL DEFAULT '',
	stored_path TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL,
	mime_type TEXT NOT NULL,
	acquired_at DATETIME NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL DEFAULT '',
	server_date DATETIME,
	page_count INTEGER,
	archive_snapshot_id INTEGER,
	earliest_archived_at DATETIME,
	dedup_index INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_document_versions_doc ON document_versions(document_id, acquired_at DESC);
`

func (s *SQLiteStore) Create(ctx context.Context, doc Document) (Document, failure.ClassifiedError) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now

	tagsJSON, _ := json.Marshal(doc.Tags)
	metaJSON, _ := json.Marshal(doc.Metadata)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Document{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, title, source_url, extracted_text, synopsis, tags, status, metadata, created_at, updated_at, discovery_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.SourceID, doc.Title, doc.SourceURL, doc.ExtractedText, doc.Synopsis, string(tagsJSON),
		doc.Status, string(metaJSON), doc.CreatedAt, doc.UpdatedAt, doc.DiscoveryMethod)
	if err != nil {
		return Document{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}

	for _, v := range doc.Versions {
		if err := insertVersion(ctx, tx, doc.ID, v); err != nil {
			return Document{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Document{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return doc, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, documentID string, v DocumentVersion) failure.ClassifiedError {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO document_versions
			(document_id, content_hash, content_hash_blake3, stored_path, file_size, mime_type, acquired_at,
			 source_url, original_filename, server_date, page_count, archive_snapshot_id, earliest_archived_at, dedup_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, documentID, v.ContentHash, v.ContentHashBLAKE3, v.StoredPath, v.FileSize, v.MimeType, v.AcquiredAt,
		v.SourceURL, v.OriginalFilename, nullableTime(v.ServerDate), nullableInt(v.PageCount),
		nullableInt(v.ArchiveSnapshotID), nullableTime(v.EarliestArchivedAt), v.DedupIndex)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, failure.ClassifiedError) {
	doc, err := s.scanDocument(ctx, `SELECT id, source_id, title, source_url, extracted_text, synopsis, tags, status, metadata, created_at, updated_at, discovery_method FROM documents WHERE id = ?`, id)
	if err != nil {
		return Document{}, err
	}
	versions, verr := s.loadVersions(ctx, id)
	if verr != nil {
		return Document{}, verr
	}
	doc.Versions = versions
	return doc, nil
}

func (s *SQLiteStore) GetBySourceURL(ctx context.Context, sourceID, sourceURL string) (Document, bool, failure.ClassifiedError) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE source_id = ? AND source_url = ?`, sourceID, sourceURL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	doc, gerr := s.Get(ctx, id)
	if gerr != nil {
		return Document{}, false, gerr
	}
	return doc, true, nil
}

func (s *SQLiteStore) AddVersion(ctx context.Context, id string, version DocumentVersion) (bool, failure.ClassifiedError) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer tx.Rollback()

	var currentSHA, currentBLAKE3 string
	err = tx.QueryRowContext(ctx, `
		SELECT content_hash, content_hash_blake3 FROM document_versions
		WHERE document_id = ? ORDER BY acquired_at DESC LIMIT 1
	`, id).Scan(&currentSHA, &currentBLAKE3)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}

	if err == nil {
		shaMatch := currentSHA == version.ContentHash
		blakeMatch := true
		if currentBLAKE3 != "" && version.ContentHashBLAKE3 != "" {
			blakeMatch = currentBLAKE3 == version.ContentHashBLAKE3
		}
		if shaMatch && blakeMatch {
			return false, nil
		}
	}

	if verr := insertVersion(ctx, tx, id, version); verr != nil {
		return false, verr
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	if err := tx.Commit(); err != nil {
		return false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return true, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status Status) failure.ClassifiedError {
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), id)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (s *SQLiteStore) FindVersionByHash(ctx context.Context, sha256 string) (string, bool, failure.ClassifiedError) {
	var docID string
	err := s.db.QueryRowContext(ctx, `SELECT document_id FROM document_versions WHERE content_hash = ?`, sha256).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return docID, true, nil
}

func (s *SQLiteStore) scanDocument(ctx context.Context, query string, args ...any) (Document, failure.ClassifiedError) {
	var doc Document
	var tagsJSON, metaJSON string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.SourceID, &doc.Title, &doc.SourceURL, &doc.ExtractedText, &doc.Synopsis,
		&tagsJSON, &doc.Status, &metaJSON, &doc.CreatedAt, &doc.UpdatedAt, &doc.DiscoveryMethod,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, &StoreError{Message: "not found", Cause: ErrCauseNotFound}
	}
	if err != nil {
		return Document{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	_ = json.Unmarshal([]byte(tagsJSON), &doc.Tags)
	_ = json.Unmarshal([]byte(metaJSON), &doc.Metadata)
	return doc, nil
}

func (s *SQLiteStore) loadVersions(ctx context.Context, documentID string) ([]DocumentVersion, failure.ClassifiedError) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, content_hash_blake3, stored_path, file_size, mime_type, acquired_at,
		       source_url, original_filename, server_date, page_count, archive_snapshot_id, earliest_archived_at, dedup_index
		FROM document_versions WHERE document_id = ? ORDER BY acquired_at DESC, id DESC
	`, documentID)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer rows.Close()

	var versions []DocumentVersion
	for rows.Next() {
		var v DocumentVersion
		var serverDate, earliestArchived sql.NullTime
		var pageCount, archiveSnapshotID sql.NullInt64
		if err := rows.Scan(&v.ID, &v.ContentHash, &v.ContentHashBLAKE3, &v.StoredPath, &v.FileSize, &v.MimeType,
			&v.AcquiredAt, &v.SourceURL, &v.OriginalFilename, &serverDate, &pageCount, &archiveSnapshotID,
			&earliestArchived, &v.DedupIndex); err != nil {
			return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
		}
		if serverDate.Valid {
			v.ServerDate = &serverDate.Time
		}
		if earliestArchived.Valid {
			v.EarliestArchivedAt = &earliestArchived.Time
		}
		if pageCount.Valid {
			n := int(pageCount.Int64)
			v.PageCount = &n
		}
		if archiveSnapshotID.Valid {
			n := int(archiveSnapshotID.Int64)
			v.ArchiveSnapshotID = &n
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

var _ Store = (*SQLiteStore)(nil)
