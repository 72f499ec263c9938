package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
)

type record struct {
	doc        savedobjects.Document
	createdSeq int64
}

// Store is an in-memory implementation of DocumentStore for testing.
// It provides thread-safe access to documents using a sync.RWMutex and hands out
// deep copies so callers never share attribute maps with the store.
type Store struct {
	mu      sync.RWMutex
	records map[string]record // id -> record
	seq     int64             // last creation sequence assigned
}

// Compile-time check that Store implements DocumentStore.
var _ store.DocumentStore = (*Store)(nil)

// New creates a new, empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]record),
	}
}

// Get returns the document with the given id.
// Returns savedobjects.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (savedobjects.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return savedobjects.Document{}, store.NotFound(id)
	}

	return rec.doc.Clone()
}

// Put writes doc if the stored version equals expectedVersion.
// An expectedVersion of zero creates the document.
func (s *Store) Put(ctx context.Context, doc savedobjects.Document, expectedVersion int64) (int64, error) {
	stored, err := doc.Clone()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[doc.ID]
	switch {
	case !exists && expectedVersion != 0:
		return 0, store.Conflict(doc.ID, expectedVersion, 0)
	case exists && rec.doc.Version != expectedVersion:
		return 0, store.Conflict(doc.ID, expectedVersion, rec.doc.Version)
	}

	if !exists {
		s.seq++
		rec.createdSeq = s.seq
	}
	stored.Version = expectedVersion + 1
	rec.doc = stored
	s.records[doc.ID] = rec

	return stored.Version, nil
}

// Search returns one page of matching documents ordered by id.
func (s *Store) Search(ctx context.Context, q store.Query, page store.Page) (store.SearchResult, error) {
	if page.Size <= 0 {
		page.Size = store.DefaultPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := page.Snapshot
	if snapshot == 0 {
		snapshot = s.seq
	}

	var ids []string
	for id, rec := range s.records {
		if rec.createdSeq > snapshot || id <= page.After || !q.Matches(rec.doc) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > page.Size {
		ids = ids[:page.Size]
	}

	result := store.SearchResult{Snapshot: snapshot}
	for _, id := range ids {
		doc, err := s.records[id].doc.Clone()
		if err != nil {
			return store.SearchResult{}, err
		}
		result.Documents = append(result.Documents, doc)
	}

	return result, nil
}

// BulkIndex creates or replaces documents without version checks.
func (s *Store) BulkIndex(ctx context.Context, docs []savedobjects.Document) ([]store.BulkItem, error) {
	items := make([]store.BulkItem, 0, len(docs))
	for _, doc := range docs {
		stored, err := doc.Clone()
		if err != nil {
			items = append(items, store.BulkItem{ID: doc.ID, Err: err})
			continue
		}

		s.mu.Lock()
		rec, exists := s.records[doc.ID]
		if !exists {
			s.seq++
			rec.createdSeq = s.seq
		}
		stored.Version = rec.doc.Version + 1
		rec.doc = stored
		s.records[doc.ID] = rec
		s.mu.Unlock()

		items = append(items, store.BulkItem{ID: doc.ID, Version: stored.Version})
	}

	return items, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
