package crawlstore

import "time"

// Status is a CrawlUrl's position in the fetch lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFetching Status = "fetching"
	StatusFetched  Status = "fetched"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Discovery method tags, per spec.md's glossary entry: enum tag
// describing how a URL was found.
const (
	DiscoveryAPIPage       = "api_page"
	DiscoveryAPICursor     = "api_cursor"
	DiscoveryAPINested     = "api_nested"
	DiscoveryHTMLCrawl     = "html_crawl"
	DiscoveryManualImport  = "manual_import"
	DiscoveryInterDocument = "inter_document_reference"
)

// CrawlUrl is one URL under management by the acquisition pipeline. It
// tracks where the URL came from, its current lifecycle state, and enough
// retry/conditional-request bookkeeping to resume cleanly after a crash.
type CrawlUrl struct {
	ID           string
	SourceID     string
	URL          string
	Status       Status
	Depth        int
	DiscoveredAt time.Time
	LastFetchAt  *time.Time
	NextRetryAt  *time.Time
	RetryCount   int
	LastError    string
	ETag         string
	LastModified string

	// DiscoveryMethod and ParentURL are discovery metadata: set once when
	// the URL is first added and never rewritten by update_url (spec.md
	// §4.1).
	DiscoveryMethod string
	ParentURL       string

	// ContentHash is the SHA-256 of the fetched content, set once the URL
	// reaches Fetched (spec.md §8 invariant 1). DocumentID links to the
	// document that content hash resolved to.
	ContentHash string
	DocumentID  string
}

// Stats summarizes a source's (or the whole store's) lifecycle counts.
type Stats struct {
	Pending  int
	Fetching int
	Fetched  int
	Skipped  int
	Failed   int
}

// RequestLogEntry records one fetch attempt against a CrawlUrl, kept for
// diagnostics and the 403-window calculation in the rate limiter. Domain
// is the canonicalized host the request went to; callers may leave it
// blank and let the store derive it from URL.
type RequestLogEntry struct {
	CrawlUrlID string
	URL        string
	Domain     string
	StatusCode int
	OccurredAt time.Time
}
