package crawlstore

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
	"github.com/monokrome/foiacquire-sub003/pkg/urlutil"
)

// canonicalHost extracts the domain a request's 403 evidence is filed
// under, via pkg/urlutil.Canonicalize, matching internal/ratelimit's
// domain-keying so the two agree on what counts as "the same domain".
func canonicalHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return urlutil.Canonicalize(*parsed).Hostname()
}

// SQLiteStore is a Store backed by modernc.org/sqlite. Its single-writer
// model makes Claim linearizable at the row level without an external
// lock: Claim's select-then-update runs inside one transaction, and the
// writer serialization SQLite already provides is enough to guarantee no
// two callers see the same row, even across processes sharing the same
// database file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, failure.ClassifiedError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite does not support concurrent writers

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, &StoreError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS crawl_urls (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	depth INTEGER NOT NULL DEFAULT 0,
	discovered_at DATETIME NOT NULL,
	last_fetch_at DATETIME,
	next_retry_at DATETIME,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	etag TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	discovery_method TEXT NOT NULL DEFAULT '',
	parent_url TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	document_id TEXT NOT NULL DEFAULT '',
	UNIQUE(source_id, url)
);
CREATE INDEX IF NOT EXISTS idx_crawl_urls_claim ON crawl_urls(status, next_retry_at);

CREATE TABLE IF NOT EXISTS request_log (
	crawl_url_id TEXT NOT NULL,
	url TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL,
	occurred_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_request_log_status_time ON request_log(status_code, occurred_at);
CREATE INDEX IF NOT EXISTS idx_request_log_domain_403 ON request_log(domain, status_code, occurred_at);
`

func (s *SQLiteStore) AddURL(ctx context.Context, sourceID, rawURL string, depth int, discoveryMethod, parentURL string) (CrawlUrl, bool, failure.ClassifiedError) {
	id := uuid.NewString()
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO crawl_urls (id, source_id, url, status, depth, discovered_at, discovery_method, parent_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, url) DO NOTHING
	`, id, sourceID, rawURL, StatusPending, depth, now, discoveryMethod, parentURL)
	if err != nil {
		return CrawlUrl{}, false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return CrawlUrl{}, false, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	inserted := n > 0

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, url, status, depth, discovered_at, last_fetch_at, next_retry_at, retry_count, last_error, etag, last_modified, discovery_method, parent_url, content_hash, document_id
		FROM crawl_urls WHERE source_id = ? AND url = ?`, sourceID, rawURL)
	cu, serr := scanCrawlUrl(row)
	if serr != nil {
		return CrawlUrl{}, false, &StoreError{Message: serr.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return cu, inserted, nil
}

func (s *SQLiteStore) GetURL(ctx context.Context, id string) (CrawlUrl, failure.ClassifiedError) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, url, status, depth, discovered_at, last_fetch_at, next_retry_at, retry_count, last_error, etag, last_modified, discovery_method, parent_url, content_hash, document_id
		FROM crawl_urls WHERE id = ?`, id)
	cu, err := scanCrawlUrl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CrawlUrl{}, &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	if err != nil {
		return CrawlUrl{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return cu, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCrawlUrl(row scannable) (CrawlUrl, error) {
	var cu CrawlUrl
	var lastFetchAt, nextRetryAt sql.NullTime
	err := row.Scan(&cu.ID, &cu.SourceID, &cu.URL, &cu.Status, &cu.Depth, &cu.DiscoveredAt,
		&lastFetchAt, &nextRetryAt, &cu.RetryCount, &cu.LastError, &cu.ETag, &cu.LastModified,
		&cu.DiscoveryMethod, &cu.ParentURL, &cu.ContentHash, &cu.DocumentID)
	if err != nil {
		return cu, err
	}
	if lastFetchAt.Valid {
		cu.LastFetchAt = &lastFetchAt.Time
	}
	if nextRetryAt.Valid {
		cu.NextRetryAt = &nextRetryAt.Time
	}
	return cu, nil
}

// Claim is the single admission choke point: inside one transaction it
// selects the ids of eligible rows, then flips each to Fetching and reads
// it back. The store uses a single connection and SQLite serializes
// writers, so there is no window in which two Claim calls could both
// select the same row.
func (s *SQLiteStore) Claim(ctx context.Context, sourceID string, limit int) ([]CrawlUrl, failure.ClassifiedError) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := `
		SELECT id FROM crawl_urls
		WHERE status = ?
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		  AND (? = '' OR source_id = ?)
		ORDER BY discovered_at ASC
		LIMIT ?
	`
	rows, err := tx.QueryContext(ctx, query, StatusPending, now, sourceID, sourceID, limit)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
		}
		ids = append(ids, id)
	}
	rows.Close()

	claimed := make([]CrawlUrl, 0, len(ids))
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE crawl_urls SET status = ?, last_fetch_at = ? WHERE id = ?`, StatusFetching, now, id); err != nil {
			return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
		}
		row := tx.QueryRowContext(ctx, `
			SELECT id, source_id, url, status, depth, discovered_at, last_fetch_at, next_retry_at, retry_count, last_error, etag, last_modified, discovery_method, parent_url, content_hash, document_id
			FROM crawl_urls WHERE id = ?`, id)
		cu, err := scanCrawlUrl(row)
		if err != nil {
			return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
		}
		claimed = append(claimed, cu)
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return claimed, nil
}

func (s *SQLiteStore) UpdateFetched(ctx context.Context, id, etag, lastModified, contentHash, documentID string) failure.ClassifiedError {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crawl_urls SET status = ?, etag = ?, last_modified = ?, content_hash = ?, document_id = ?, retry_count = 0, last_error = '', next_retry_at = NULL
		WHERE id = ?`, StatusFetched, etag, lastModified, contentHash, documentID, id)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (s *SQLiteStore) UpdateSkipped(ctx context.Context, id string) failure.ClassifiedError {
	_, err := s.db.ExecContext(ctx, `UPDATE crawl_urls SET status = ?, next_retry_at = NULL WHERE id = ?`, StatusSkipped, id)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (s *SQLiteStore) UpdateFailed(ctx context.Context, id, lastError string, retryMax int, nextRetryAt time.Time) failure.ClassifiedError {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer tx.Rollback()

	var retryCount int
	if err := tx.QueryRowContext(ctx, `SELECT retry_count FROM crawl_urls WHERE id = ?`, id).Scan(&retryCount); err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	retryCount++

	if retryCount > retryMax {
		_, err = tx.ExecContext(ctx, `UPDATE crawl_urls SET status = ?, retry_count = ?, last_error = ?, next_retry_at = NULL WHERE id = ?`,
			StatusFailed, retryCount, lastError, id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE crawl_urls SET status = ?, retry_count = ?, last_error = ?, next_retry_at = ? WHERE id = ?`,
			StatusPending, retryCount, lastError, nextRetryAt, id)
	}
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	if err := tx.Commit(); err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (s *SQLiteStore) CountPending(ctx context.Context, sourceID string) (int, failure.ClassifiedError) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM crawl_urls
		WHERE status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?) AND (? = '' OR source_id = ?)
	`, StatusPending, time.Now().UTC(), sourceID, sourceID).Scan(&count)
	if err != nil {
		return 0, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return count, nil
}

func (s *SQLiteStore) Stats(ctx context.Context, sourceID string) (Stats, failure.ClassifiedError) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM crawl_urls WHERE (? = '' OR source_id = ?) GROUP BY status
	`, sourceID, sourceID)
	if err != nil {
		return Stats{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
		}
		switch status {
		case StatusPending:
			st.Pending = count
		case StatusFetching:
			st.Fetching = count
		case StatusFetched:
			st.Fetched = count
		case StatusSkipped:
			st.Skipped = count
		case StatusFailed:
			st.Failed = count
		}
	}
	return st, nil
}

func (s *SQLiteStore) LogRequest(ctx context.Context, entry RequestLogEntry) failure.ClassifiedError {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	domain := entry.Domain
	if domain == "" {
		domain = canonicalHost(entry.URL)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO request_log (crawl_url_id, url, domain, status_code, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		entry.CrawlUrlID, entry.URL, domain, entry.StatusCode, entry.OccurredAt)
	if err != nil {
		return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return nil
}

// Count403InWindow matches domain exactly against request_log.domain
// (the canonicalized host recorded at LogRequest time) rather than via a
// substring match against the raw URL, so a host that merely contains
// domain as a substring (e.g. "notexample.com" against "example.com") is
// never miscounted into domain's 403-pattern evidence.
func (s *SQLiteStore) Count403InWindow(ctx context.Context, domain string, window time.Duration, now time.Time) (int, failure.ClassifiedError) {
	cutoff := now.Add(-window)
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT url) FROM request_log
		WHERE status_code = 403 AND occurred_at >= ? AND domain = ?
	`, cutoff, domain).Scan(&count)
	if err != nil {
		return 0, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	return count, nil
}

func (s *SQLiteStore) MarkStaleForRefresh(ctx context.Context, sourceID string, ttl time.Duration) (int, failure.ClassifiedError) {
	cutoff := time.Now().UTC().Add(-ttl)
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_urls SET status = ?, next_retry_at = NULL
		WHERE status = ? AND last_fetch_at IS NOT NULL AND last_fetch_at <= ? AND (? = '' OR source_id = ?)
	`, StatusPending, StatusFetched, cutoff, sourceID, sourceID)
	if err != nil {
		return 0, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) ReconcileStaleFetching(ctx context.Context, watchdogAge time.Duration) (int, failure.ClassifiedError) {
	cutoff := time.Now().UTC().Add(-watchdogAge)
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_urls SET status = ? WHERE status = ? AND last_fetch_at IS NOT NULL AND last_fetch_at <= ?
	`, StatusPending, StatusFetching, cutoff)
	if err != nil {
		return 0, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseStorageFailed}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var _ Store = (*SQLiteStore)(nil)
