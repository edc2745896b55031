package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

type fourOhThreeEvent struct {
	url string
	at  time.Time
}

// MemoryBackend is a single-process Backend, one mutex-guarded map per
// domain, in the shape of the teacher's ConcurrentRateLimiter.
type MemoryBackend struct {
	mu       sync.Mutex
	states   map[string]DomainRateState
	fourOhOh map[string][]fourOhThreeEvent
	now      func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		states:   make(map[string]DomainRateState),
		fourOhOh: make(map[string][]fourOhThreeEvent),
		now:      time.Now,
	}
}

func (b *MemoryBackend) GetOrCreate(_ context.Context, domain string, baseDelay time.Duration) (DomainRateState, failure.ClassifiedError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getOrCreateLocked(domain, baseDelay), nil
}

func (b *MemoryBackend) getOrCreateLocked(domain string, baseDelay time.Duration) DomainRateState {
	state, ok := b.states[domain]
	if !ok {
		state = DomainRateState{Domain: domain, CurrentDelay: baseDelay}
		b.states[domain] = state
	}
	return state
}

func (b *MemoryBackend) Update(_ context.Context, state DomainRateState) failure.ClassifiedError {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[state.Domain] = state
	return nil
}

func (b *MemoryBackend) Acquire(_ context.Context, domain string, baseDelay time.Duration) (time.Duration, failure.ClassifiedError) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.getOrCreateLocked(domain, baseDelay)
	now := b.now()

	var wait time.Duration
	if !state.LastRequestAt.IsZero() {
		elapsed := now.Sub(state.LastRequestAt)
		if elapsed < state.CurrentDelay {
			wait = state.CurrentDelay - elapsed
		}
	}

	state.RequestCount++
	state.LastRequestAt = now.Add(wait)
	b.states[domain] = state

	return wait, nil
}

func (b *MemoryBackend) Record403(_ context.Context, domain, url string) failure.ClassifiedError {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fourOhOh[domain] = append(b.fourOhOh[domain], fourOhThreeEvent{url: url, at: b.now()})
	return nil
}

func (b *MemoryBackend) Get403Count(_ context.Context, domain string, window time.Duration) (int, failure.ClassifiedError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-window)
	seen := make(map[string]struct{})
	for _, ev := range b.fourOhOh[domain] {
		if ev.at.Before(cutoff) {
			continue
		}
		seen[ev.url] = struct{}{}
	}
	return len(seen), nil
}

func (b *MemoryBackend) Clear403s(_ context.Context, domain string) failure.ClassifiedError {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fourOhOh, domain)
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
