package crawlstore

import (
	"context"
	"time"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// Store is the capability set for tracking crawl URLs through their
// lifecycle. Implementations must make Claim linearizable at the row
// level: two concurrent Claim calls must never return the same URL.
type Store interface {
	// AddURL inserts a new URL in Pending status, recording discoveryMethod
	// and parentURL as immutable discovery metadata. Re-adding a URL that
	// already exists for the same source is a no-op, not an error; the
	// bool return reports whether this call newly inserted the row (true)
	// or found it already present (false), per spec.md §4.1's
	// add_url(crawl_url) -> bool contract.
	AddURL(ctx context.Context, sourceID, url string, depth int, discoveryMethod, parentURL string) (CrawlUrl, bool, failure.ClassifiedError)

	// GetURL fetches one CrawlUrl by id.
	GetURL(ctx context.Context, id string) (CrawlUrl, failure.ClassifiedError)

	// Claim atomically transitions up to limit Pending URLs whose
	// next-retry time is unset or has elapsed (optionally scoped to
	// sourceID) to Fetching and returns them. A retryable failure is back
	// in Pending (see UpdateFailed), so it is claimable here once due.
	// This is the pipeline's single admission choke point for concurrent
	// workers: the implementation must guarantee no two callers ever
	// receive the same row.
	Claim(ctx context.Context, sourceID string, limit int) ([]CrawlUrl, failure.ClassifiedError)

	// UpdateFetched transitions a URL to Fetched, recording conditional
	// request headers for future revalidation along with the content hash
	// and document id the fetch resolved to (spec.md §4.1, §8 invariant 1).
	UpdateFetched(ctx context.Context, id, etag, lastModified, contentHash, documentID string) failure.ClassifiedError

	// UpdateSkipped transitions a URL to Skipped (e.g. excluded by policy
	// after being claimed). A 304 Not Modified is recorded with
	// UpdateFetched instead.
	UpdateSkipped(ctx context.Context, id string) failure.ClassifiedError

	// UpdateFailed records a failed attempt. If retryCount now exceeds
	// retryMax the URL becomes terminally Failed; otherwise it returns to
	// Pending with nextRetryAt set for a later attempt.
	UpdateFailed(ctx context.Context, id, lastError string, retryMax int, nextRetryAt time.Time) failure.ClassifiedError

	// CountPending returns the number of URLs currently eligible for
	// Claim (Pending with no next-retry time or an elapsed one) for sourceID, or
	// across all sources when sourceID is empty.
	CountPending(ctx context.Context, sourceID string) (int, failure.ClassifiedError)

	// Stats summarizes lifecycle counts for sourceID, or the whole store
	// when sourceID is empty.
	Stats(ctx context.Context, sourceID string) (Stats, failure.ClassifiedError)

	// LogRequest appends one fetch-attempt record, consulted by the rate
	// limiter's 403-window calculation.
	LogRequest(ctx context.Context, entry RequestLogEntry) failure.ClassifiedError

	// Count403InWindow returns how many distinct URLs received a 403 for
	// domain within the trailing window ending at now.
	Count403InWindow(ctx context.Context, domain string, window time.Duration, now time.Time) (int, failure.ClassifiedError)

	// MarkStaleForRefresh transitions Fetched URLs older than ttl back to
	// Pending so they are re-fetched on a future cycle.
	MarkStaleForRefresh(ctx context.Context, sourceID string, ttl time.Duration) (int, failure.ClassifiedError)

	// ReconcileStaleFetching resets URLs stuck in Fetching for longer than
	// watchdogAge back to Pending. Run once at startup to recover from a
	// crash that happened mid-fetch.
	ReconcileStaleFetching(ctx context.Context, watchdogAge time.Duration) (int, failure.ClassifiedError)
}
