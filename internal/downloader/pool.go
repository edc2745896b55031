// Package downloader implements the bounded worker pool that drains a
// source's pending URLs through fetch, dedup, and document-store
// attachment. Grounded in other_examples/jonesrussell-north-cloud's
// WorkerPool/worker/claimAndProcess shape (claim-or-sleep loop, per-worker
// goroutine, cooperative cancellation) and in APTlantis-Mirror-Crates's
// channel-fed worker Run for the terminal-event/metrics split.
package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monokrome/foiacquire-sub003/internal/contentstore"
	"github.com/monokrome/foiacquire-sub003/internal/crawlstore"
	"github.com/monokrome/foiacquire-sub003/internal/document"
	"github.com/monokrome/foiacquire-sub003/internal/events"
	"github.com/monokrome/foiacquire-sub003/internal/httpclient"
	"github.com/monokrome/foiacquire-sub003/pkg/failure"
	"github.com/monokrome/foiacquire-sub003/pkg/timeutil"
)

// maxEmptyPolls bounds how many consecutive empty Claim calls a worker
// tolerates before exiting. A worker that exits early just means one fewer
// consumer on this call; Download returns normally once every worker has
// exited.
const maxEmptyPolls = 3

// DownloadResult summarizes one Download call's outcome, per spec.md
// §4.6's DownloadResult contract.
type DownloadResult struct {
	Downloaded       int
	Deduplicated     int
	Skipped          int
	Failed           int
	RemainingPending int
}

// Pool drains a source's pending URLs using a fixed number of concurrent
// workers sharing the same crawl store, document store, content store, and
// HTTP client.
type Pool struct {
	crawlStore    crawlstore.Store
	documentStore document.Store
	contentStore  *contentstore.Store
	client        *httpclient.Client
	retryMax      int
	pollInterval  time.Duration
	log           *slog.Logger
}

func New(
	crawlStore crawlstore.Store,
	documentStore document.Store,
	contentStore *contentstore.Store,
	client *httpclient.Client,
	retryMax int,
	pollInterval time.Duration,
	log *slog.Logger,
) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Pool{
		crawlStore:    crawlStore,
		documentStore: documentStore,
		contentStore:  contentStore,
		client:        client,
		retryMax:      retryMax,
		pollInterval:  pollInterval,
		log:           log,
	}
}

// counters accumulates outcome tallies across all workers in one Download
// call. All fields are updated only via atomic ops; reading Snapshot after
// every worker has exited requires no further synchronization.
type counters struct {
	downloaded   atomic.Int64
	deduplicated atomic.Int64
	skipped      atomic.Int64
	failed       atomic.Int64
	processed    atomic.Int64
}

// Download spawns workers goroutines, each draining sourceID's pending
// queue one URL at a time until limit total URLs have been processed
// across all workers (limit <= 0 means unlimited) or the queue runs dry.
// Blocks until every worker has exited; exits early on ctx cancellation.
func (p *Pool) Download(ctx context.Context, sourceID string, workers, limit int, sink events.Sink) (DownloadResult, failure.ClassifiedError) {
	if sink == nil {
		sink = events.NewSlogSink(p.log)
	}
	if workers < 1 {
		workers = 1
	}

	var c counters
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID, sourceID, limit, sink, &c)
		}(i)
	}
	wg.Wait()

	remaining, err := p.crawlStore.CountPending(ctx, sourceID)
	if err != nil {
		return DownloadResult{}, err
	}

	return DownloadResult{
		Downloaded:       int(c.downloaded.Load()),
		Deduplicated:     int(c.deduplicated.Load()),
		Skipped:          int(c.skipped.Load()),
		Failed:           int(c.failed.Load()),
		RemainingPending: remaining,
	}, nil
}

func (p *Pool) worker(ctx context.Context, workerID int, sourceID string, limit int, sink events.Sink, c *counters) {
	emptyPolls := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if limit > 0 && int(c.processed.Load()) >= limit {
			return
		}

		claimed, err := p.crawlStore.Claim(ctx, sourceID, 1)
		if err != nil {
			p.log.Error("claim failed", "worker_id", workerID, "error", err.Error())
			if p.sleepOrCancel(ctx) {
				return
			}
			continue
		}

		if len(claimed) == 0 {
			emptyPolls++
			if emptyPolls >= maxEmptyPolls {
				return
			}
			if p.sleepOrCancel(ctx) {
				return
			}
			continue
		}
		emptyPolls = 0

		c.processed.Add(1)
		p.processURL(ctx, workerID, sourceID, claimed[0], sink, c)
	}
}

func (p *Pool) sleepOrCancel(ctx context.Context) bool {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// processURL carries one claimed URL through fetch, classification, and
// storage, per spec.md §4.6 steps 2-7. It never returns an error: every
// outcome, including local storage failures, is reported through sink and
// the counters instead, so one bad URL never aborts its worker's loop.
func (p *Pool) processURL(ctx context.Context, workerID int, sourceID string, claimed crawlstore.CrawlUrl, sink events.Sink, c *counters) {
	filename := filenameFromURL(claimed.URL)
	sink.Started(events.Started{WorkerID: workerID, URL: claimed.URL, Filename: filename})

	resp, ferr := p.client.Get(ctx, claimed.URL, claimed.ETag, claimed.LastModified)
	if ferr != nil {
		p.handleDownloadFailure(ctx, workerID, claimed, ferr.Error(), sink, c)
		return
	}

	switch {
	case resp.NotModified():
		p.handleUnchanged(ctx, workerID, claimed, resp, sink, c)
	case !resp.IsSuccess():
		p.handleDownloadFailure(ctx, workerID, claimed, httpStatusError(resp.StatusCode), sink, c)
	default:
		p.handleSuccess(ctx, workerID, sourceID, claimed, resp, filename, sink, c)
	}
}

func (p *Pool) handleUnchanged(ctx context.Context, workerID int, claimed crawlstore.CrawlUrl, resp httpclient.Response, sink events.Sink, c *counters) {
	etag, lastModified := resp.ETag(), resp.LastModified()
	if etag == "" {
		etag = claimed.ETag
	}
	if lastModified == "" {
		lastModified = claimed.LastModified
	}
	// Not-modified leaves content_hash/document_id as they were: the
	// content didn't change, so whatever they already resolve to is still
	// correct (spec.md §8 invariant 1's not_modified branch).
	if err := p.crawlStore.UpdateFetched(ctx, claimed.ID, etag, lastModified, claimed.ContentHash, claimed.DocumentID); err != nil {
		p.log.Error("update fetched (304) failed", "worker_id", workerID, "url", claimed.URL, "error", err.Error())
		sink.Failed(events.Failed{WorkerID: workerID, URL: claimed.URL, Error: err.Error()})
		c.failed.Add(1)
		return
	}
	sink.Unchanged(events.Unchanged{WorkerID: workerID, URL: claimed.URL})
	c.skipped.Add(1)
}

// handleDownloadFailure covers spec.md §4.6 step 6's non-success branch: a
// response was received (or a transport attempt was made) and did not
// succeed, so it counts against the URL's retry budget.
func (p *Pool) handleDownloadFailure(ctx context.Context, workerID int, claimed crawlstore.CrawlUrl, lastError string, sink events.Sink, c *counters) {
	retryCount := claimed.RetryCount + 1
	nextRetryAt := time.Now().UTC().Add(backoffFor(retryCount))
	if err := p.crawlStore.UpdateFailed(ctx, claimed.ID, lastError, p.retryMax, nextRetryAt); err != nil {
		p.log.Error("update failed failed", "worker_id", workerID, "url", claimed.URL, "error", err.Error())
	}
	sink.Failed(events.Failed{WorkerID: workerID, URL: claimed.URL, Error: lastError})
	c.failed.Add(1)
}

// handleLocalFailure covers step 7: the fetch itself succeeded but a
// subsequent local I/O or database operation failed. The URL's
// retry_count is deliberately left untouched; the row stays Fetching and
// is recovered by a later ReconcileStaleFetching sweep rather than by this
// worker guessing at a correct reset.
func (p *Pool) handleLocalFailure(workerID int, url, message string, sink events.Sink, c *counters) {
	p.log.Error("local failure processing claimed URL", "worker_id", workerID, "url", url, "error", message)
	sink.Failed(events.Failed{WorkerID: workerID, URL: url, Error: message})
	c.failed.Add(1)
}

func (p *Pool) handleSuccess(
	ctx context.Context,
	workerID int,
	sourceID string,
	claimed crawlstore.CrawlUrl,
	resp httpclient.Response,
	filename string,
	sink events.Sink,
	c *counters,
) {
	originalFilename := resp.ContentDispositionFilename()
	if originalFilename == "" {
		originalFilename = filename
	}
	mimeType := resp.ContentType()

	result, werr := p.contentStore.Write(ctx, contentstore.PathInput{
		OriginalFilename: originalFilename,
		SourceURL:        claimed.URL,
		Title:            titleFromFilename(originalFilename),
		MimeType:         mimeType,
	}, resp.Bytes)
	if werr != nil {
		p.handleLocalFailure(workerID, claimed.URL, werr.Error(), sink, c)
		return
	}

	version := document.DocumentVersion{
		ContentHash:       result.Hashes.SHA256,
		ContentHashBLAKE3: result.Hashes.BLAKE3,
		StoredPath:        result.RelativePath,
		FileSize:          int64(len(resp.Bytes)),
		MimeType:          mimeType,
		AcquiredAt:        time.Now().UTC(),
		SourceURL:         claimed.URL,
		OriginalFilename:  originalFilename,
		DedupIndex:        result.DedupIndex,
	}

	documentID, newDocument, derr := p.upsertDocument(ctx, sourceID, claimed.URL, originalFilename, version)
	if derr != nil {
		p.handleLocalFailure(workerID, claimed.URL, derr.Error(), sink, c)
		return
	}

	if err := p.crawlStore.UpdateFetched(ctx, claimed.ID, resp.ETag(), resp.LastModified(), result.Hashes.SHA256, documentID); err != nil {
		p.handleLocalFailure(workerID, claimed.URL, err.Error(), sink, c)
		return
	}

	if result.Deduplicated {
		sink.Deduplicated(events.Deduplicated{WorkerID: workerID, URL: claimed.URL, ExistingPath: result.RelativePath})
		c.deduplicated.Add(1)
		return
	}
	sink.Completed(events.Completed{WorkerID: workerID, URL: claimed.URL, NewDocument: newDocument})
	c.downloaded.Add(1)
}

// upsertDocument attaches version to sourceURL's document row, creating the
// document if this is the first version seen for it. Returns the
// document's id and whether a new document was created.
func (p *Pool) upsertDocument(ctx context.Context, sourceID, sourceURL, originalFilename string, version document.DocumentVersion) (string, bool, failure.ClassifiedError) {
	existing, found, err := p.documentStore.GetBySourceURL(ctx, sourceID, sourceURL)
	if err != nil {
		return "", false, err
	}
	if found {
		if _, err := p.documentStore.AddVersion(ctx, existing.ID, version); err != nil {
			return "", false, err
		}
		return existing.ID, false, nil
	}

	created, err := p.documentStore.Create(ctx, document.Document{
		SourceID:  sourceID,
		SourceURL: sourceURL,
		Title:     titleFromFilename(originalFilename),
		Status:    document.StatusDownloaded,
		Versions:  []document.DocumentVersion{version},
	})
	if err != nil {
		return "", false, err
	}
	return created.ID, true, nil
}

func httpStatusError(statusCode int) string {
	return fmt.Sprintf("http status %d", statusCode)
}

func filenameFromURL(rawURL string) string {
	idx := strings.LastIndexByte(rawURL, '/')
	if idx < 0 || idx == len(rawURL)-1 {
		return "document"
	}
	name := rawURL[idx+1:]
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	if name == "" {
		return "document"
	}
	return name
}

func titleFromFilename(filename string) string {
	base := path.Base(filename)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// backoffFor computes the next-retry delay for a URL that has now failed
// retryCount times: 30s doubling per failure, capped at 30 minutes, so
// a struggling source doesn't get hammered by the worker pool between
// download cycles.
func backoffFor(retryCount int) time.Duration {
	param := timeutil.NewBackoffParam(30*time.Second, 2.0, 30*time.Minute)
	return timeutil.ExponentialBackoffDelay(retryCount, 0, rand.Rand{}, param)
}
