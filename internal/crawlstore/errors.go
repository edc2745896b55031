package crawlstore

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseNotFound      ErrorCause = "not found"
	ErrCauseStorageFailed ErrorCause = "storage failed"
	ErrCauseDuplicateURL  ErrorCause = "duplicate url"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     ErrorCause
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("crawlstore: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}
