package savedobjects

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/copystructure"
)

// ConfigSentinelID is the well-known id of the authoritative configuration document.
const ConfigSentinelID = "kibi"

// MarkerAttribute is the configuration attribute holding the last applied migration id.
const MarkerAttribute = "buildNum"

// Type is the kind of a saved object. The set of types is fixed.
type Type string

const (
	TypeVisualization  Type = "visualization"
	TypeIndexPattern   Type = "index-pattern"
	TypeConfig         Type = "config"
	TypeDashboard      Type = "dashboard"
	TypeDashboardGroup Type = "dashboard-group"
	TypeQuery          Type = "query"
	TypeTemplate       Type = "template"
	TypeDatasource     Type = "datasource"
	TypeSearch         Type = "search"
)

// Types lists every built-in document type.
var Types = []Type{
	TypeVisualization,
	TypeIndexPattern,
	TypeConfig,
	TypeDashboard,
	TypeDashboardGroup,
	TypeQuery,
	TypeTemplate,
	TypeDatasource,
	TypeSearch,
}

// ParseType returns the Type named by s or an error if s is not a built-in type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// Document is a persisted saved object.
type Document struct {
	// ID is unique within a store.
	ID string

	// Type never changes after creation.
	Type Type

	// Version is the optimistic concurrency token assigned by the store.
	// Zero means the document has not been persisted.
	Version int64

	// SchemaVersion is the id of the last migration that rewrote the document.
	SchemaVersion int

	// Attributes holds the JSON-compatible document body.
	Attributes map[string]any
}

// Clone returns a deep copy of the document so that callers can mutate
// attributes without affecting the original.
func (d Document) Clone() (Document, error) {
	out := d
	if d.Attributes == nil {
		return out, nil
	}
	attrs, err := copystructure.Copy(d.Attributes)
	if err != nil {
		return Document{}, fmt.Errorf("failed to copy attributes of %s: %w", d.ID, err)
	}
	out.Attributes = attrs.(map[string]any)
	return out, nil
}

// String returns the attribute value for key if it is a string.
func (d Document) String(key string) (string, bool) {
	v, ok := d.Attributes[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// TransformFunc rewrites one document. It receives a copy it may mutate and
// returns nil when the document needs no change.
type TransformFunc func(doc Document) (*Document, error)

// Source yields documents of the given types. An empty type list yields every document.
type Source interface {
	Scan(ctx context.Context, types ...Type) iter.Seq2[Document, error]
}

// Migration is one numbered, idempotent transformation over a subset of documents.
type Migration struct {
	// ID defines application order. IDs are strictly increasing and positive.
	ID int

	// Description is a human readable summary used in logs and reports.
	Description string

	// Types narrows the documents scanned for this migration. Empty means all types.
	Types []Type

	// AppliesTo selects candidates among scanned documents. Nil accepts all of them.
	AppliesTo func(doc Document) bool

	// Transform rewrites a candidate. Required unless Prepare is set.
	Transform TransformFunc

	// Prepare, when set, reads whatever cross-document state the migration needs
	// before its scan starts and returns the transform bound to that state.
	Prepare func(ctx context.Context, src Source) (TransformFunc, error)

	// HaltOnFailure aborts the whole run on the first document failure.
	HaltOnFailure bool
}

// Bind resolves Prepare, returning a migration whose Transform is ready to use.
func (m Migration) Bind(ctx context.Context, src Source) (Migration, error) {
	if m.Prepare == nil {
		return m, nil
	}
	t, err := m.Prepare(ctx, src)
	if err != nil {
		return m, err
	}
	m.Transform = t
	return m, nil
}

// Applies reports whether doc is a candidate for the migration.
func (m Migration) Applies(doc Document) bool {
	if m.AppliesTo == nil {
		return true
	}
	return m.AppliesTo(doc)
}

// Failure records one document that a migration could not process.
type Failure struct {
	MigrationID int
	DocumentID  string
	Err         error
}

func (f Failure) Error() string {
	return fmt.Sprintf("migration %d, document %q: %v", f.MigrationID, f.DocumentID, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// MigrationResult summarizes one migration applied over its candidates.
type MigrationResult struct {
	MigrationID int
	Applied     int
	Skipped     int
	Failures    []Failure
}

// RunState is a phase of a migration run.
type RunState string

const (
	RunStateInit             RunState = "init"
	RunStateDetermineVersion RunState = "determine_version"
	RunStateRunning          RunState = "running"
	RunStateAdvanceMarker    RunState = "advance_marker"
	RunStateDone             RunState = "done"
	RunStateFailed           RunState = "failed"
)

// RunReport describes the outcome of a migration run.
type RunReport struct {
	// RunID identifies the run in logs and metrics.
	RunID string

	// State is the final phase reached: RunStateDone or RunStateFailed.
	State RunState

	// FromVersion is the marker read at the start of the run.
	FromVersion int

	// ToVersion is the marker persisted at the end of the run.
	ToVersion int

	// Applied lists the ids of migrations that completed, in order.
	Applied []int

	// Results holds one entry per migration that was started.
	Results []MigrationResult

	// Failures collects document failures across all migrations.
	Failures []Failure

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Halted reports whether the run stopped before completing its pending migrations.
func (r RunReport) Halted() bool {
	return r.State == RunStateFailed
}

// Err aggregates the recorded document failures, or returns nil if there were none.
func (r RunReport) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		result = multierror.Append(result, f)
	}
	return result.ErrorOrNil()
}
