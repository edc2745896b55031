package document

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monokrome/foiacquire-sub003/pkg/failure"
)

// MemoryStore is a single-process Store backed by a mutex-guarded map.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string]Document
	byNatural  map[string]map[string]string // sourceID -> sourceURL -> docID
	byHash     map[string]string            // sha256 -> docID
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]Document),
		byNatural: make(map[string]map[string]string),
		byHash:    make(map[string]string),
		now:       time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, doc Document) (Document, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := s.now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	s.docs[doc.ID] = doc
	if s.byNatural[doc.SourceID] == nil {
		s.byNatural[doc.SourceID] = make(map[string]string)
	}
	s.byNatural[doc.SourceID][doc.SourceURL] = doc.ID
	for _, v := range doc.Versions {
		s.byHash[v.ContentHash] = doc.ID
	}
	return doc, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Document, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	return doc, nil
}

func (s *MemoryStore) GetBySourceURL(_ context.Context, sourceID, sourceURL string) (Document, bool, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byURL, ok := s.byNatural[sourceID]
	if !ok {
		return Document{}, false, nil
	}
	id, ok := byURL[sourceURL]
	if !ok {
		return Document{}, false, nil
	}
	return s.docs[id], true, nil
}

func (s *MemoryStore) AddVersion(_ context.Context, id string, version DocumentVersion) (bool, failure.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return false, &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	added := doc.AddVersion(version)
	if added {
		s.byHash[version.ContentHash] = id
	}
	s.docs[id] = doc
	return added, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) failure.ClassifiedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return &StoreError{Message: id, Cause: ErrCauseNotFound}
	}
	doc.Status = status
	doc.UpdatedAt = s.now()
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) FindVersionByHash(_ context.Context, sha256 string) (string, bool, failure.ClassifiedError) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[sha256]
	return id, ok, nil
}

var _ Store = (*MemoryStore)(nil)
