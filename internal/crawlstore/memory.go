package crawlstore

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monokrome/foiacquire-sub003/pkg/failure"
	"github.com/monokrome/foiacquire-sub003/pkg/urlutil"
)

// MemoryStore is a single-process Store backed by a mutex-guarded map. It
// is suitable for tests and single-process deployments; coordinating
// multiple processes requires SQLiteStore.
type MemoryStore struct {
	mu       sync.RWMutex
	urls     map[string]CrawlUrl
	bySource map[string]map[string]string // sourceID -> url -> id
	requests []RequestLogEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls:     make(map[string]CrawlUrl),
		bySource: make(map[string]map[string]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) AddURL(_ context.Context, sourceID, rawURL string, depth int, discoveryMethod, parentURL string) (CrawlUrl, bool, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ids, ok := s.bySource[sourceID]; ok {
		if id, ok := ids[rawURL]; ok {
			return s.urls[id], false, nil
		}
	}

	cu := CrawlUrl{
		ID:              uuid.NewString(),
		SourceID:        sourceID,
		URL:             rawURL,
		Status:          StatusPending,
		Depth:           depth,
		DiscoveredAt:    s.now(),
		DiscoveryMethod: discoveryMethod,
		ParentURL:       parentURL,
	}
	s.urls[cu.ID] = cu
	if s.bySource[sourceID] == nil {
		s.bySource[sourceID] = make(map[string]string)
	}
	s.bySource[sourceID][rawURL] = cu.ID
	return cu, true, nil
}

func (s *MemoryStore) GetURL(_ context.Context, id string) (CrawlUrl, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cu, ok := s.urls[id]
	if !ok {
		return CrawlUrl{}, &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	return cu, nil
}

func (s *MemoryStore) Claim(_ context.Context, sourceID string, limit int) ([]CrawlUrl, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	candidates := make([]CrawlUrl, 0)
	for _, cu := range s.urls {
		if sourceID != "" && cu.SourceID != sourceID {
			continue
		}
		if !eligibleForClaim(cu, now) {
			continue
		}
		candidates = append(candidates, cu)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DiscoveredAt.Before(candidates[j].DiscoveredAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	claimed := make([]CrawlUrl, 0, len(candidates))
	for _, cu := range candidates {
		cu.Status = StatusFetching
		lf := now
		cu.LastFetchAt = &lf
		s.urls[cu.ID] = cu
		claimed = append(claimed, cu)
	}
	return claimed, nil
}

func eligibleForClaim(cu CrawlUrl, now time.Time) bool {
	switch cu.Status {
	case StatusPending:
		return cu.NextRetryAt == nil || !cu.NextRetryAt.After(now)
	default:
		return false
	}
}

func (s *MemoryStore) UpdateFetched(_ context.Context, id, etag, lastModified, contentHash, documentID string) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.urls[id]
	if !ok {
		return &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	cu.Status = StatusFetched
	cu.ETag = etag
	cu.LastModified = lastModified
	cu.ContentHash = contentHash
	cu.DocumentID = documentID
	cu.RetryCount = 0
	cu.LastError = ""
	cu.NextRetryAt = nil
	s.urls[id] = cu
	return nil
}

func (s *MemoryStore) UpdateSkipped(_ context.Context, id string) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.urls[id]
	if !ok {
		return &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	cu.Status = StatusSkipped
	cu.NextRetryAt = nil
	s.urls[id] = cu
	return nil
}

func (s *MemoryStore) UpdateFailed(_ context.Context, id, lastError string, retryMax int, nextRetryAt time.Time) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	cu, ok := s.urls[id]
	if !ok {
		return &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	cu.RetryCount++
	cu.LastError = lastError
	if cu.RetryCount > retryMax {
		cu.Status = StatusFailed
		cu.NextRetryAt = nil
	} else {
		cu.Status = StatusPending
		nr := nextRetryAt
		cu.NextRetryAt = &nr
	}
	s.urls[id] = cu
	return nil
}

func (s *MemoryStore) CountPending(_ context.Context, sourceID string) (int, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	count := 0
	for _, cu := range s.urls {
		if sourceID != "" && cu.SourceID != sourceID {
			continue
		}
		if eligibleForClaim(cu, now) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) Stats(_ context.Context, sourceID string) (Stats, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, cu := range s.urls {
		if sourceID != "" && cu.SourceID != sourceID {
			continue
		}
		switch cu.Status {
		case StatusPending:
			st.Pending++
		case StatusFetching:
			st.Fetching++
		case StatusFetched:
			st.Fetched++
		case StatusSkipped:
			st.Skipped++
		case StatusFailed:
			st.Failed++
		}
	}
	return st, nil
}

func (s *MemoryStore) LogRequest(_ context.Context, entry RequestLogEntry) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now()
	}
	if entry.Domain == "" {
		entry.Domain = urlHost(entry.URL)
	}
	s.requests = append(s.requests, entry)
	return nil
}

// Count403InWindow matches domain against the canonicalized host recorded
// on each entry (set at LogRequest time), an exact comparison rather than
// a substring match, so a host merely containing domain as a substring
// never counts as evidence against it.
func (s *MemoryStore) Count403InWindow(_ context.Context, domain string, window time.Duration, now time.Time) (int, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := now.Add(-window)
	seen := make(map[string]struct{})
	for _, r := range s.requests {
		if r.StatusCode != 403 {
			continue
		}
		if r.OccurredAt.Before(cutoff) {
			continue
		}
		host := r.Domain
		if host == "" {
			host = urlHost(r.URL)
		}
		if host != domain {
			continue
		}
		seen[r.URL] = struct{}{}
	}
	return len(seen), nil
}

// urlHost canonicalizes rawURL the same way internal/ratelimit.hostOf
// does, so the two agree on what counts as "the same domain".
func urlHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return urlutil.Canonicalize(*u).Hostname()
}

func (s *MemoryStore) MarkStaleForRefresh(_ context.Context, sourceID string, ttl time.Duration) (int, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	count := 0
	for id, cu := range s.urls {
		if sourceID != "" && cu.SourceID != sourceID {
			continue
		}
		if cu.Status != StatusFetched {
			continue
		}
		if cu.LastFetchAt == nil || now.Sub(*cu.LastFetchAt) < ttl {
			continue
		}
		cu.Status = StatusPending
		cu.NextRetryAt = nil
		s.urls[id] = cu
		count++
	}
	return count, nil
}

func (s *MemoryStore) ReconcileStaleFetching(_ context.Context, watchdogAge time.Duration) (int, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	count := 0
	for id, cu := range s.urls {
		if cu.Status != StatusFetching {
			continue
		}
		if cu.LastFetchAt == nil || now.Sub(*cu.LastFetchAt) < watchdogAge {
			continue
		}
		cu.Status = StatusPending
		s.urls[id] = cu
		count++
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
