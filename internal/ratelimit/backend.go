package ratelimit

import (
	"context"
	"time"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// Backend is the storage capability set a RateLimiter drives. It holds per
// domain state and the 403-evidence log needed to tell a genuine rate
// limit apart from ordinary access denial. Acquire computes a wait time
// but never sleeps: the caller owns the sleep, matching the teacher's
// ResolveDelay contract and the original Rust acquire()'s caller-side
// tokio::time::sleep.
type Backend interface {
	// GetOrCreate returns a domain's current state, inserting a fresh one
	// (current_delay = baseDelay, in_backoff = false) if none exists yet.
	GetOrCreate(ctx context.Context, domain string, baseDelay time.Duration) (DomainRateState, failure.ClassifiedError)

	// Update persists state, typically after a classification step has
	// mutated it.
	Update(ctx context.Context, state DomainRateState) failure.ClassifiedError

	// Acquire computes the wait time until the next request is permitted
	// for domain, increments the request counter, and persists the
	// updated LastRequestAt/RequestCount. It does not sleep.
	Acquire(ctx context.Context, domain string, baseDelay time.Duration) (time.Duration, failure.ClassifiedError)

	// Record403 appends one 403 observation for (domain, url) at the
	// current time.
	Record403(ctx context.Context, domain, url string) failure.ClassifiedError

	// Get403Count returns the number of distinct URLs that received a 403
	// for domain within the trailing window.
	Get403Count(ctx context.Context, domain string, window time.Duration) (int, failure.ClassifiedError)

	// Clear403s discards 403 evidence for domain, called once a definite
	// rate limit has been recorded or a success has been observed.
	Clear403s(ctx context.Context, domain string) failure.ClassifiedError
}
