package ratelimit

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseStorageFailed ErrorCause = "storage failed"
)

// BackendError is always Recoverable: the rate limiter fails open on a
// storage error rather than blocking the pipeline, per spec.md §4.2.
type BackendError struct {
	Message string
	Cause   ErrorCause
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("ratelimit backend: %s: %s", e.Cause, e.Message)
}

func (e *BackendError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
