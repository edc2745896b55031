package document

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseStorageFailed ErrorCause = "storage failure"
	ErrCauseNotFound      ErrorCause = "document not found"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     ErrorCause
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("document: %s: %s", e.Cause, e.Message)
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

var _ failure.ClassifiedError = (*StoreError)(nil)
