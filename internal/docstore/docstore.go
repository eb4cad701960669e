// Package docstore holds document metadata for display-name resolution.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/rankd/internal/retrieval"
)

// ErrNotFound indicates the document id is unknown.
var ErrNotFound = errors.New("document not found")

// Store is an in-memory document metadata store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]retrieval.DocumentMeta
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string]retrieval.DocumentMeta)}
}

// Put registers or replaces a document's metadata.
func (s *Store) Put(meta retrieval.DocumentMeta) {
	if meta.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[meta.ID] = meta
}

// GetDocument returns metadata for a document id.
func (s *Store) GetDocument(_ context.Context, id string) (retrieval.DocumentMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.docs[id]
	if !ok {
		return retrieval.DocumentMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return meta, nil
}

// Len returns the number of registered documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
