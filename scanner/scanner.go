package scanner

import (
	"context"
	"iter"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
)

// Config configures the document scanner.
type Config struct {
	// Store is the document store to scan (required).
	Store store.DocumentStore

	// BatchSize is the number of documents read per page (default: 100).
	BatchSize int

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// Scanner iterates the documents of a store in bounded pages.
type Scanner struct {
	config Config
}

// Compile-time check that Scanner implements savedobjects.Source.
var _ savedobjects.Source = (*Scanner)(nil)

// New creates a new Scanner with the given configuration.
// It applies default values for BatchSize if zero.
func New(cfg Config) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = store.DefaultPageSize
	}
	return &Scanner{config: cfg}
}

// Scan returns a lazy sequence over the documents of the given types, in
// ascending id order. Every call starts a fresh scan. Documents created after
// the first page was read are not yielded.
//
// A store error is yielded once and ends the sequence. Stopping the iteration
// early stops reading pages.
func (s *Scanner) Scan(ctx context.Context, types ...savedobjects.Type) iter.Seq2[savedobjects.Document, error] {
	query := store.Query{Types: types}

	return func(yield func(savedobjects.Document, error) bool) {
		page := store.Page{Size: s.config.BatchSize}
		pages := 0
		total := 0

		for {
			if err := ctx.Err(); err != nil {
				yield(savedobjects.Document{}, err)
				return
			}

			result, err := s.config.Store.Search(ctx, query, page)
			if err != nil {
				yield(savedobjects.Document{}, err)
				return
			}
			pages++

			for _, doc := range result.Documents {
				if !yield(doc, nil) {
					return
				}
			}
			total += len(result.Documents)

			if len(result.Documents) < page.Size {
				break
			}
			page.After = result.Documents[len(result.Documents)-1].ID
			page.Snapshot = result.Snapshot
		}

		if s.config.Logger != nil {
			s.config.Logger.Debug(ctx, "scan complete", "types", types, "documents", total, "pages", pages)
		}
	}
}
