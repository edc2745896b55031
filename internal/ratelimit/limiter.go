package ratelimit

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
	"github.com/monokrome/foiacquire-sub003/pkg/timeutil"
	"github.com/monokrome/foiacquire-sub003/pkg/urlutil"
)

// IsDefiniteRateLimit reports whether statusCode is unambiguous evidence of
// rate limiting on its own, regardless of any 403 pattern. Grounded in
// original_source/crates/foiacquire/src/rate_limit/limiter.rs's
// is_definite_rate_limit.
func IsDefiniteRateLimit(statusCode int) bool {
	return statusCode == 429 || statusCode == 503
}

// IsPossibleRateLimit reports whether statusCode warrants 403-evidence
// tracking: the definite codes plus 403, which is ambiguous until it
// recurs across enough distinct URLs.
func IsPossibleRateLimit(statusCode int) bool {
	return IsDefiniteRateLimit(statusCode) || statusCode == 403
}

// RateLimiter drives a Backend with the adaptive per-domain delay policy:
// exponential backoff on a definite rate limit, mild backoff on server
// errors, and gradual recovery on sustained success.
type RateLimiter struct {
	backend Backend
	config  Config
	sleeper timeutil.Sleeper
	log     *slog.Logger
}

func NewRateLimiter(backend Backend, config Config, sleeper timeutil.Sleeper, log *slog.Logger) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}
	if sleeper == nil {
		sleeper = timeutil.RealSleeper{}
	}
	return &RateLimiter{backend: backend, config: config, sleeper: sleeper, log: log}
}

// Acquire blocks the caller until domain's current delay has elapsed since
// its last request, then returns the domain it acquired for. A backend
// error fails open: the caller proceeds without waiting, logged as a
// warning, rather than stalling the pipeline.
func (r *RateLimiter) Acquire(ctx context.Context, rawURL string) (string, failure.ClassifiedError) {
	domain, err := hostOf(rawURL)
	if err != nil {
		return "", err
	}

	wait, berr := r.backend.Acquire(ctx, domain, r.config.BaseDelay)
	if berr != nil {
		r.log.Warn("rate limiter backend failed, proceeding without delay", "domain", domain, "error", berr.Error())
		return domain, nil
	}

	r.sleeper.Sleep(wait)
	return domain, nil
}

// ReportResponseStatus classifies an observed response and updates the
// domain's adaptive state accordingly. url is the original request URL,
// recorded as 403 evidence when statusCode is 403. hasRetryAfter indicates
// whether the response carried a Retry-After header.
func (r *RateLimiter) ReportResponseStatus(ctx context.Context, domain string, statusCode int, url string, hasRetryAfter bool) failure.ClassifiedError {
	switch {
	case statusCode == 429 || statusCode == 503:
		return r.reportRateLimit(ctx, domain)
	case statusCode == 403:
		return r.reportPossible403(ctx, domain, url, hasRetryAfter)
	case statusCode >= 500:
		return r.reportServerError(ctx, domain)
	case statusCode >= 200 && statusCode < 400:
		return r.reportSuccess(ctx, domain)
	default:
		// Any other status (e.g. 404) leaves the delay alone but is not a
		// success, so it still breaks the success streak.
		state, err := r.backend.GetOrCreate(ctx, domain, r.config.BaseDelay)
		if err != nil {
			return err
		}
		state.ConsecutiveSuccesses = 0
		return r.backend.Update(ctx, state)
	}
}

func (r *RateLimiter) reportRateLimit(ctx context.Context, domain string) failure.ClassifiedError {
	state, err := r.backend.GetOrCreate(ctx, domain, r.config.BaseDelay)
	if err != nil {
		return err
	}

	state.InBackoff = true
	state.ConsecutiveSuccesses = 0
	state.RateLimitHits++
	state.CurrentDelay = timeutil.ClampDuration(
		scaleDuration(state.CurrentDelay, r.config.BackoffMultiplier),
		r.config.MinDelay, r.config.MaxDelay,
	)

	if err := r.backend.Update(ctx, state); err != nil {
		return err
	}
	return r.backend.Clear403s(ctx, domain)
}

// reportPossible403 resolves the 403 ambiguity: a Retry-After header, or
// three or more distinct URLs hit within the 403 evidence window, counts as
// a definite rate limit. Otherwise the request was simply denied and only
// resets the success streak.
func (r *RateLimiter) reportPossible403(ctx context.Context, domain, url string, hasRetryAfter bool) failure.ClassifiedError {
	if err := r.backend.Record403(ctx, domain, url); err != nil {
		r.log.Warn("failed to record 403 evidence", "domain", domain, "error", err.Error())
	}

	if hasRetryAfter {
		return r.reportRateLimit(ctx, domain)
	}

	count, err := r.backend.Get403Count(ctx, domain, fourOhThreeWindow)
	if err != nil {
		return err
	}
	if count >= fourOhThreeThreshold {
		return r.reportRateLimit(ctx, domain)
	}

	state, err := r.backend.GetOrCreate(ctx, domain, r.config.BaseDelay)
	if err != nil {
		return err
	}
	state.ConsecutiveSuccesses = 0
	return r.backend.Update(ctx, state)
}

func (r *RateLimiter) reportServerError(ctx context.Context, domain string) failure.ClassifiedError {
	state, err := r.backend.GetOrCreate(ctx, domain, r.config.BaseDelay)
	if err != nil {
		return err
	}

	state.CurrentDelay = timeutil.ClampDuration(scaleDuration(state.CurrentDelay, 1.5), r.config.MinDelay, r.config.MaxDelay)
	return r.backend.Update(ctx, state)
}

func (r *RateLimiter) reportSuccess(ctx context.Context, domain string) failure.ClassifiedError {
	state, err := r.backend.GetOrCreate(ctx, domain, r.config.BaseDelay)
	if err != nil {
		return err
	}

	state.ConsecutiveSuccesses++
	if err := r.backend.Clear403s(ctx, domain); err != nil {
		return err
	}

	if state.InBackoff && state.ConsecutiveSuccesses >= r.config.RecoveryThreshold {
		recovered := timeutil.ClampDuration(
			scaleDuration(state.CurrentDelay, r.config.RecoveryMultiplier),
			r.config.MinDelay, r.config.MaxDelay,
		)
		if recovered <= r.config.BaseDelay {
			recovered = r.config.BaseDelay
			state.InBackoff = false
			state.ConsecutiveSuccesses = 0
		}
		state.CurrentDelay = recovered
	}

	return r.backend.Update(ctx, state)
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// hostOf extracts the domain a URL's rate-limit state is keyed on, via
// pkg/urlutil.Canonicalize (scheme/host lowercasing, default-port
// stripping) so that e.g. "HTTP://Agency.gov:80/x" and
// "http://agency.gov/y" serialize through the same backend state instead
// of two spuriously distinct ones.
func hostOf(rawURL string) (string, failure.ClassifiedError) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &BackendError{Message: err.Error(), Cause: ErrCauseStorageFailed}
	}
	return urlutil.Canonicalize(*parsed).Hostname(), nil
}
