package contentstore

import (
	"context"
	"sync"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// MemoryIndex is an in-memory Index, used in tests and as a reference
// implementation.
type MemoryIndex struct {
	mu      sync.Mutex
	byHash  map[string]IndexEntry
	byPath  map[string]bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		byHash: make(map[string]IndexEntry),
		byPath: make(map[string]bool),
	}
}

func (m *MemoryIndex) Find(ctx context.Context, sha256 string) (IndexEntry, bool, failure.ClassifiedError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.byHash[sha256]
	return entry, ok, nil
}

func (m *MemoryIndex) Insert(ctx context.Context, entry IndexEntry) failure.ClassifiedError {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byHash[entry.SHA256]; exists {
		return &StoreError{Message: "hash already indexed", Cause: ErrCauseIndexFailure, Retryable: false}
	}
	m.byHash[entry.SHA256] = entry
	m.byPath[entry.Path] = true
	return nil
}

func (m *MemoryIndex) PathTaken(ctx context.Context, path string) (bool, failure.ClassifiedError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byPath[path], nil
}

var _ Index = (*MemoryIndex)(nil)
