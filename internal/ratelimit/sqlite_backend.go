package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// SQLiteBackend is a Backend for coordinating the adaptive delay across
// multiple processes sharing one database file, per spec.md §4.2.
type SQLiteBackend struct {
	db *sql.DB
}

func OpenSQLiteBackend(path string) (*SQLiteBackend, failure.ClassifiedError) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(rateLimitSchemaSQL); err != nil {
		return nil, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

const rateLimitSchemaSQL = `
CREATE TABLE IF NOT EXISTS domain_rate_state (
	domain TEXT PRIMARY KEY,
	current_delay_ms INTEGER NOT NULL,
	in_backoff INTEGER NOT NULL DEFAULT 0,
	consecutive_successes INTEGER NOT NULL DEFAULT 0,
	rate_limit_hits INTEGER NOT NULL DEFAULT 0,
	request_count INTEGER NOT NULL DEFAULT 0,
	last_request_at DATETIME
);

CREATE TABLE IF NOT EXISTS domain_403_log (
	domain TEXT NOT NULL,
	url TEXT NOT NULL,
	occurred_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_domain_403_log ON domain_403_log(domain, occurred_at);
`

func (b *SQLiteBackend) GetOrCreate(ctx context.Context, domain string, baseDelay time.Duration) (DomainRateState, failure.ClassifiedError) {
	state, err := b.get(ctx, domain)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return DomainRateState{}, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}

	state = DomainRateState{Domain: domain, CurrentDelay: baseDelay}
	if cerr := b.insert(ctx, state); cerr != nil {
		return DomainRateState{}, cerr
	}
	return state, nil
}

func (b *SQLiteBackend) get(ctx context.Context, domain string) (DomainRateState, error) {
	var (
		state        DomainRateState
		delayMs      int64
		inBackoff    int
		lastRequest  sql.NullTime
	)
	err := b.db.QueryRowContext(ctx, `
		SELECT domain, current_delay_ms, in_backoff, consecutive_successes, rate_limit_hits, request_count, last_request_at
		FROM domain_rate_state WHERE domain = ?`, domain).
		Scan(&state.Domain, &delayMs, &inBackoff, &state.ConsecutiveSuccesses, &state.RateLimitHits, &state.RequestCount, &lastRequest)
	if err != nil {
		return DomainRateState{}, err
	}
	state.CurrentDelay = time.Duration(delayMs) * time.Millisecond
	state.InBackoff = inBackoff != 0
	if lastRequest.Valid {
		state.LastRequestAt = lastRequest.Time
	}
	return state, nil
}

func (b *SQLiteBackend) insert(ctx context.Context, state DomainRateState) failure.ClassifiedError {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO domain_rate_state (domain, current_delay_ms, in_backoff, consecutive_successes, rate_limit_hits, request_count, last_request_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO NOTHING
	`, state.Domain, state.CurrentDelay.Milliseconds(), boolToInt(state.InBackoff), state.ConsecutiveSuccesses,
		state.RateLimitHits, state.RequestCount, nullableTime(state.LastRequestAt))
	if err != nil {
		return &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (b *SQLiteBackend) Update(ctx context.Context, state DomainRateState) failure.ClassifiedError {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO domain_rate_state (domain, current_delay_ms, in_backoff, consecutive_successes, rate_limit_hits, request_count, last_request_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			current_delay_ms = excluded.current_delay_ms,
			in_backoff = excluded.in_backoff,
			consecutive_successes = excluded.consecutive_successes,
			rate_limit_hits = excluded.rate_limit_hits,
			request_count = excluded.request_count,
			last_request_at = excluded.last_request_at
	`, state.Domain, state.CurrentDelay.Milliseconds(), boolToInt(state.InBackoff), state.ConsecutiveSuccesses,
		state.RateLimitHits, state.RequestCount, nullableTime(state.LastRequestAt))
	if err != nil {
		return &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (b *SQLiteBackend) Acquire(ctx context.Context, domain string, baseDelay time.Duration) (time.Duration, failure.ClassifiedError) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	defer tx.Rollback()

	state, gerr := b.GetOrCreate(ctx, domain, baseDelay)
	if gerr != nil {
		return 0, gerr
	}

	now := time.Now().UTC()
	var wait time.Duration
	if !state.LastRequestAt.IsZero() {
		elapsed := now.Sub(state.LastRequestAt)
		if elapsed < state.CurrentDelay {
			wait = state.CurrentDelay - elapsed
		}
	}

	state.RequestCount++
	state.LastRequestAt = now.Add(wait)

	if uerr := b.Update(ctx, state); uerr != nil {
		return 0, uerr
	}
	if err := tx.Commit(); err != nil {
		return 0, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return wait, nil
}

func (b *SQLiteBackend) Record403(ctx context.Context, domain, url string) failure.ClassifiedError {
	_, err := b.db.ExecContext(ctx, `INSERT INTO domain_403_log (domain, url, occurred_at) VALUES (?, ?, ?)`,
		domain, url, time.Now().UTC())
	if err != nil {
		return &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return nil
}

func (b *SQLiteBackend) Get403Count(ctx context.Context, domain string, window time.Duration) (int, failure.ClassifiedError) {
	cutoff := time.Now().UTC().Add(-window)
	var count int
	err := b.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT url) FROM domain_403_log WHERE domain = ? AND occurred_at >= ?
	`, domain, cutoff).Scan(&count)
	if err != nil {
		return 0, &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return count, nil
}

func (b *SQLiteBackend) Clear403s(ctx context.Context, domain string) failure.ClassifiedError {
	_, err := b.db.ExecContext(ctx, `DELETE FROM domain_403_log WHERE domain = ?`, domain)
	if err != nil {
		return &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ Backend = (*SQLiteBackend)(nil)
