package store

import (
	"context"
	"sync"

	"github.com/getpup/pupsourcing-savedobjects"
)

// MockDocumentStore is a configurable mock implementation of DocumentStore
// for use in tests. It allows setting up expected return values, tracking method
// calls, and injecting errors for testing error paths.
type MockDocumentStore struct {
	mu sync.RWMutex

	// GetFunc is called by Get if set.
	GetFunc func(ctx context.Context, id string) (savedobjects.Document, error)

	// PutFunc is called by Put if set.
	PutFunc func(ctx context.Context, doc savedobjects.Document, expectedVersion int64) (int64, error)

	// SearchFunc is called by Search if set.
	SearchFunc func(ctx context.Context, q Query, page Page) (SearchResult, error)

	// BulkIndexFunc is called by BulkIndex if set.
	BulkIndexFunc func(ctx context.Context, docs []savedobjects.Document) ([]BulkItem, error)

	// Call tracking
	GetCalls       []GetCall
	PutCalls       []PutCall
	SearchCalls    []SearchCall
	BulkIndexCalls []BulkIndexCall
}

// Call tracking structs
type GetCall struct {
	ID string
}

type PutCall struct {
	Document        savedobjects.Document
	ExpectedVersion int64
}

type SearchCall struct {
	Query Query
	Page  Page
}

type BulkIndexCall struct {
	Documents []savedobjects.Document
}

// Compile-time check that MockDocumentStore implements DocumentStore.
var _ DocumentStore = (*MockDocumentStore)(nil)

// NewMockDocumentStore creates a new mock document store.
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{}
}

// Get implements DocumentStore.
func (m *MockDocumentStore) Get(ctx context.Context, id string) (savedobjects.Document, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetCall{ID: id})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}

	return savedobjects.Document{}, NotFound(id)
}

// Put implements DocumentStore.
func (m *MockDocumentStore) Put(ctx context.Context, doc savedobjects.Document, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	m.PutCalls = append(m.PutCalls, PutCall{Document: doc, ExpectedVersion: expectedVersion})
	m.mu.Unlock()

	if m.PutFunc != nil {
		return m.PutFunc(ctx, doc, expectedVersion)
	}

	return expectedVersion + 1, nil
}

// Search implements DocumentStore.
func (m *MockDocumentStore) Search(ctx context.Context, q Query, page Page) (SearchResult, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, SearchCall{Query: q, Page: page})
	m.mu.Unlock()

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, q, page)
	}

	return SearchResult{Snapshot: page.Snapshot}, nil
}

// BulkIndex implements DocumentStore.
func (m *MockDocumentStore) BulkIndex(ctx context.Context, docs []savedobjects.Document) ([]BulkItem, error) {
	m.mu.Lock()
	m.BulkIndexCalls = append(m.BulkIndexCalls, BulkIndexCall{Documents: docs})
	m.mu.Unlock()

	if m.BulkIndexFunc != nil {
		return m.BulkIndexFunc(ctx, docs)
	}

	items := make([]BulkItem, len(docs))
	for i, d := range docs {
		items[i] = BulkItem{ID: d.ID, Version: 1}
	}
	return items, nil
}

// PutCallCount returns the number of Put calls in a thread-safe way.
func (m *MockDocumentStore) PutCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.PutCalls)
}

// Reset clears all call tracking data.
func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = nil
	m.PutCalls = nil
	m.SearchCalls = nil
	m.BulkIndexCalls = nil
}
