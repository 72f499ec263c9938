package executor

import (
	"context"
	"iter"

	"github.com/getpup/pupsourcing-savedobjects"
)

// Applier applies one migration to a sequence of candidate documents.
// This interface allows for mock implementations in tests.
type Applier interface {
	Apply(ctx context.Context, m savedobjects.Migration, candidates iter.Seq2[savedobjects.Document, error]) (savedobjects.MigrationResult, error)
}
