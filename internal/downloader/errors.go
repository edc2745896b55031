package downloader

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseCrawlStoreFailure   ErrorCause = "crawl store failure"
	ErrCauseDocumentFailure     ErrorCause = "document store failure"
	ErrCauseContentStoreFailure ErrorCause = "content store failure"
)

// PoolError covers the local (non-response) failures §4.6 step 7 singles
// out: these never increment a URL's retry_count, since the URL itself was
// never actually fetched and rejected.
type PoolError struct {
	Message string
	Cause   ErrorCause
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("downloader: %s: %s", e.Cause, e.Message)
}

func (e *PoolError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

var _ failure.ClassifiedError = (*PoolError)(nil)
