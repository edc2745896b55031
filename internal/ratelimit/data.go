package ratelimit

import "time"

// DomainRateState is the adaptive rate-limit state tracked per domain.
type DomainRateState struct {
	Domain               string
	CurrentDelay         time.Duration
	InBackoff            bool
	ConsecutiveSuccesses int
	RateLimitHits        int
	RequestCount         int64
	LastRequestAt        time.Time
}

// Config holds the policy parameters applied on top of a Backend. Field
// names mirror spec.md §6's option table.
type Config struct {
	BaseDelay          time.Duration
	MinDelay           time.Duration
	MaxDelay           time.Duration
	BackoffMultiplier  float64
	RecoveryMultiplier float64
	RecoveryThreshold  int
}

// DefaultConfig matches internal/config.WithDefault's rate-limit values.
func DefaultConfig() Config {
	return Config{
		BaseDelay:          time.Second,
		MinDelay:           250 * time.Millisecond,
		MaxDelay:           30 * time.Second,
		BackoffMultiplier:  2.0,
		RecoveryMultiplier: 0.5,
		RecoveryThreshold:  3,
	}
}

// the 403-evidence window used to distinguish a definite rate limit from
// ordinary access-denial, per original_source/crates/foiacquire/src/rate_limit/limiter.rs.
const (
	fourOhThreeWindow    = 60 * time.Second
	fourOhThreeThreshold = 3
)
