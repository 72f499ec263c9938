package store

import (
	"context"

	"github.com/getpup/pupsourcing-savedobjects"
)

// DefaultPageSize is the number of documents returned per Search call when the
// page does not specify a size.
const DefaultPageSize = 100

// DocumentStore is the persistence boundary of the migration engine.
// Implementations must be safe for concurrent access: the engine never assumes
// exclusive access and relies on optimistic concurrency for every write.
type DocumentStore interface {
	// Get returns the document with the given id.
	// Returns savedobjects.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (savedobjects.Document, error)

	// Put writes doc if its stored version equals expectedVersion and returns the
	// new version. An expectedVersion of zero creates the document and fails if it
	// already exists.
	// Returns savedobjects.ErrConcurrentModification when the check fails.
	Put(ctx context.Context, doc savedobjects.Document, expectedVersion int64) (int64, error)

	// Search returns one page of documents matching q, ordered by ascending id.
	// The first page (zero Snapshot) captures the creation sequence of the store;
	// later pages passing that Snapshot back never return documents created after it.
	Search(ctx context.Context, q Query, page Page) (SearchResult, error)

	// BulkIndex creates or replaces documents without version checks and returns
	// one item per document. It is meant for loading fixtures, not for migrations.
	BulkIndex(ctx context.Context, docs []savedobjects.Document) ([]BulkItem, error)
}

// Initializer is implemented by stores that need their backing schema created.
type Initializer interface {
	// Initialize creates the backing schema if it does not exist.
	Initialize(ctx context.Context) error
}

// Query selects documents.
type Query struct {
	// Types restricts the result to the given document types. Empty means all types.
	Types []savedobjects.Type
}

// Matches reports whether doc satisfies the query.
func (q Query) Matches(doc savedobjects.Document) bool {
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if doc.Type == t {
			return true
		}
	}
	return false
}

// Page describes a keyset page of a search.
type Page struct {
	// Size is the maximum number of documents returned (default: DefaultPageSize).
	Size int

	// After is the id of the last document of the previous page; empty for the first page.
	After string

	// Snapshot is the creation sequence captured by the first page; zero for the first page.
	Snapshot int64
}

// SearchResult is one page of documents.
type SearchResult struct {
	// Documents are ordered by ascending id.
	Documents []savedobjects.Document

	// Snapshot must be passed back in the next Page.
	Snapshot int64
}

// BulkItem acknowledges one document of a BulkIndex call.
type BulkItem struct {
	ID      string
	Version int64
	Err     error
}
