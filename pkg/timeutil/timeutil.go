package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// DurationPtr returns a pointer to d, useful for optional duration fields.
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest value in durations, or zero for an
// empty slice. Does not mutate its input.
func MaxDuration(durations []time.Duration) time.Duration {
	var max time.Duration
	for i, d := range durations {
		if i == 0 || d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max). Non-positive
// max returns zero.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes initial * multiplier^(backoffCount-1),
// clamped to maxDuration, plus jitter in [0, jitter). backoffCount <= 0 is
// treated as 1 (the first backoff step).
func ExponentialBackoffDelay(backoffCount int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	if backoffCount < 1 {
		backoffCount = 1
	}

	delay := float64(param.InitialDuration()) * math.Pow(param.Multiplier(), float64(backoffCount-1))
	clamped := time.Duration(delay)
	if max := param.MaxDuration(); max > 0 && clamped > max {
		clamped = max
	}

	return clamped + ComputeJitter(jitter, rng)
}
