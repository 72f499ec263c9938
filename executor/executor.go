package executor

import (
	"context"
	"fmt"
	"iter"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
)

// Config configures the migration executor.
type Config struct {
	// Store is the document store migrated documents are written to (required).
	Store store.DocumentStore

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// Executor transforms candidate documents and writes them back with
// optimistic concurrency.
type Executor struct {
	config Config
}

// Compile-time check that Executor implements Applier.
var _ Applier = (*Executor)(nil)

// New creates a new Executor with the given configuration.
func New(cfg Config) *Executor {
	return &Executor{
		config: cfg,
	}
}

// Apply runs m over every candidate, one document at a time.
//
// A candidate is skipped when its schema version shows it was already
// rewritten by m or a later migration, when m does not apply to it, or when
// the transform returns nil. Otherwise the transformed copy is stamped with
// m.ID and written with the version it was read at.
//
// A failing document is recorded in the result. Apply stops and returns the
// failure when m halts on failure or the failure is fatal. Scan errors are
// always returned.
func (e *Executor) Apply(ctx context.Context, m savedobjects.Migration, candidates iter.Seq2[savedobjects.Document, error]) (savedobjects.MigrationResult, error) {
	result := savedobjects.MigrationResult{MigrationID: m.ID}

	if m.Transform == nil {
		err := savedobjects.Errorf(savedobjects.KindRegistry, "migration has no bound transform")
		err.MigrationID = m.ID
		return result, err
	}

	for doc, err := range candidates {
		if err != nil {
			return result, fmt.Errorf("failed to scan candidates of migration %d: %w", m.ID, err)
		}

		if doc.SchemaVersion >= m.ID || !m.Applies(doc) {
			result.Skipped++
			continue
		}

		written, err := e.applyOne(ctx, m, doc)
		if err != nil {
			failure := savedobjects.Failure{MigrationID: m.ID, DocumentID: doc.ID, Err: err}
			result.Failures = append(result.Failures, failure)

			if e.config.Logger != nil {
				e.config.Logger.Error(ctx, "document migration failed",
					"migrationID", m.ID, "documentID", doc.ID, "haltOnFailure", m.HaltOnFailure, "error", err)
			}

			if m.HaltOnFailure || savedobjects.IsFatal(err) {
				return result, failure
			}
			continue
		}

		if written {
			result.Applied++
		} else {
			result.Skipped++
		}
	}

	if e.config.Logger != nil {
		e.config.Logger.Info(ctx, "migration applied",
			"migrationID", m.ID,
			"description", m.Description,
			"applied", result.Applied,
			"skipped", result.Skipped,
			"failed", len(result.Failures))
	}

	return result, nil
}

// applyOne transforms one document and writes it back. It reports whether a
// write happened.
func (e *Executor) applyOne(ctx context.Context, m savedobjects.Migration, doc savedobjects.Document) (bool, error) {
	working, err := doc.Clone()
	if err != nil {
		return false, transformError(m, doc, err)
	}

	out, err := safeTransform(m.Transform, working)
	if err != nil {
		return false, transformError(m, doc, err)
	}
	if out == nil {
		return false, nil
	}

	if out.ID != doc.ID {
		return false, transformError(m, doc, fmt.Errorf("transform changed id to %q", out.ID))
	}
	if out.Type != doc.Type {
		return false, transformError(m, doc, fmt.Errorf("transform changed type from %s to %s", doc.Type, out.Type))
	}

	out.SchemaVersion = m.ID
	if _, err := e.config.Store.Put(ctx, *out, doc.Version); err != nil {
		return false, fmt.Errorf("failed to write document: %w", err)
	}

	if e.config.Logger != nil {
		e.config.Logger.Debug(ctx, "document migrated", "migrationID", m.ID, "documentID", doc.ID)
	}
	return true, nil
}

func safeTransform(fn savedobjects.TransformFunc, doc savedobjects.Document) (out *savedobjects.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return fn(doc)
}

func transformError(m savedobjects.Migration, doc savedobjects.Document, err error) error {
	return &savedobjects.Error{
		Kind:        savedobjects.KindTransform,
		MigrationID: m.ID,
		DocumentID:  doc.ID,
		Err:         err,
	}
}
