package httpclient

import (
	"fmt"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type ErrorCause string

const (
	ErrCauseInvalidPrivacyConfig ErrorCause = "invalid privacy configuration"
	ErrCauseRequestBuildFailed   ErrorCause = "failed to build request"
	ErrCauseTransportFailure     ErrorCause = "transport failure"
)

// ClientError covers both construction-time failures (bad proxy URL,
// fail-closed Tor) and per-request transport failures. Construction
// failures are always Fatal; transport failures are Recoverable so callers
// can retry.
type ClientError struct {
	Message   string
	Cause     ErrorCause
	Retryable bool
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("httpclient: %s: %s", e.Cause, e.Message)
}

func (e *ClientError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *ClientError) IsRetryable() bool {
	return e.Retryable
}
