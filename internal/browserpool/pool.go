// Package browserpool models a pool of stealth-capable fetchers for hosts
// that block plain HTTP clients outright. spec.md §4.4.1 describes the
// capability (a Fetcher interface, a selection Strategy, health-aware
// skipping) without mandating a concrete browser automation library; no
// headless-browser package is present anywhere in the example pack (no
// chromedp, no go-rod), so Pool is wired against a pure-Go HTTP stand-in
// (HTTPStandInFetcher) rather than a fabricated dependency. Shape is
// grounded in the teacher's and other_examples/jonesrussell-north-cloud's
// worker-pool-over-a-slice pattern, generalized from "workers pull claims"
// to "callers pick a fetcher".
package browserpool

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
)

// Response is the result of a stealth fetch, reported identically
// regardless of which Fetcher served it.
type Response struct {
	StatusCode int
	Header     map[string][]string
	Bytes      []byte
}

// Fetcher performs one stealth-profile fetch.
type Fetcher interface {
	Fetch(ctx context.Context, target url.URL) (Response, error)
}

// Strategy selects which healthy fetcher in a Pool serves the next
// request.
type Strategy int

const (
	// RoundRobin cycles through healthy fetchers in order.
	RoundRobin Strategy = iota
	// Random picks a healthy fetcher by hashing a fresh selection key each
	// call, avoiding a math/rand dependency for a choice with no need for
	// cryptographic unpredictability.
	Random
	// PerDomain consistently maps a domain to the same healthy fetcher,
	// so a domain's requests share a consistent stealth profile across
	// calls, with forward-walk to the next healthy fetcher when its
	// preferred one is marked unhealthy.
	PerDomain
)

// Pool holds a fixed set of fetchers and selects among the healthy ones
// per Strategy. A Pool with zero fetchers is valid; Fetch always returns
// ErrNoHealthyFetcher for it.
type Pool struct {
	fetchers []Fetcher
	strategy Strategy

	mu        sync.RWMutex
	unhealthy map[int]bool

	nextIndex atomic.Uint64
}

// ErrNoHealthyFetcher is returned when every fetcher in the pool is marked
// unhealthy, or the pool holds none at all.
var ErrNoHealthyFetcher = fmt.Errorf("browserpool: no healthy fetcher available")

func New(strategy Strategy, fetchers ...Fetcher) *Pool {
	return &Pool{
		fetchers:  fetchers,
		strategy:  strategy,
		unhealthy: make(map[int]bool),
	}
}

// MarkUnhealthy excludes fetcher index i from selection until MarkHealthy
// is called for it. Out-of-range indices are ignored.
func (p *Pool) MarkUnhealthy(i int) {
	if i < 0 || i >= len(p.fetchers) {
		return
	}
	p.mu.Lock()
	p.unhealthy[i] = true
	p.mu.Unlock()
}

// MarkHealthy clears a prior MarkUnhealthy for fetcher index i.
func (p *Pool) MarkHealthy(i int) {
	p.mu.Lock()
	delete(p.unhealthy, i)
	p.mu.Unlock()
}

// Fetch selects a healthy fetcher per the pool's Strategy and delegates to
// it. Unhealthy fetchers are always skipped; Fetch itself never marks a
// fetcher unhealthy on error, leaving that policy to the caller.
func (p *Pool) Fetch(ctx context.Context, target url.URL) (Response, error) {
	idx, ok := p.selectIndex(target)
	if !ok {
		return Response{}, ErrNoHealthyFetcher
	}
	return p.fetchers[idx].Fetch(ctx, target)
}

func (p *Pool) selectIndex(target url.URL) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	healthy := make([]int, 0, len(p.fetchers))
	for i := range p.fetchers {
		if !p.unhealthy[i] {
			healthy = append(healthy, i)
		}
	}
	if len(healthy) == 0 {
		return 0, false
	}

	switch p.strategy {
	case PerDomain:
		start := domainBucket(target.Host, len(p.fetchers))
		for i := 0; i < len(p.fetchers); i++ {
			if idx := (start + i) % len(p.fetchers); !p.unhealthy[idx] {
				return idx, true
			}
		}
		return 0, false
	case Random:
		return healthy[domainBucket(fmt.Sprintf("%s#%d", target.String(), p.nextIndex.Add(1)), len(healthy))], true
	default: // RoundRobin
		n := p.nextIndex.Add(1)
		return healthy[int(n)%len(healthy)], true
	}
}

// domainBucket deterministically maps key into [0, buckets) using the
// first 8 bytes of its SHA-256 digest, so PerDomain selection is stable
// across calls without needing to retain per-domain state.
func domainBucket(key string, buckets int) int {
	sum := sha256.Sum256([]byte(key))
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % uint64(buckets))
}
