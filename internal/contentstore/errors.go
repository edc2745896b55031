package contentstore

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseWriteFailure       ErrorCause = "write failure"
	ErrCauseDiskFull           ErrorCause = "disk full"
	ErrCauseHashComputeFailure ErrorCause = "hash computation failure"
	ErrCauseIndexFailure       ErrorCause = "index failure"
	ErrCausePathError          ErrorCause = "path error"
)

type StoreError struct {
	Message   string
	Cause     ErrorCause
	Retryable bool
	Path      string
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("contentstore: %s: %s (%s)", e.Cause, e.Message, e.Path)
	}
	return fmt.Sprintf("contentstore: %s: %s", e.Cause, e.Message)
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
