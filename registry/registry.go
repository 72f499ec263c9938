package registry

import (
	"cmp"
	"slices"

	"github.com/getpup/pupsourcing-savedobjects"
)

// Registry is the ordered, immutable catalog of migrations known to the process.
type Registry struct {
	migrations []savedobjects.Migration
}

// New builds a registry from an explicit list of migrations.
// The list may be given in any order; the registry sorts it by ascending id.
// Returns savedobjects.ErrRegistry for non-positive or duplicate ids, and for
// migrations with neither Transform nor Prepare.
func New(migrations ...savedobjects.Migration) (*Registry, error) {
	sorted := slices.Clone(migrations)
	slices.SortStableFunc(sorted, func(a, b savedobjects.Migration) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for i, m := range sorted {
		if m.ID <= 0 {
			e := savedobjects.Errorf(savedobjects.KindRegistry, "migration id must be positive (got: %d)", m.ID)
			e.MigrationID = m.ID
			return nil, e
		}
		if i > 0 && sorted[i-1].ID == m.ID {
			e := savedobjects.Errorf(savedobjects.KindRegistry, "duplicate migration id %d (%q and %q)", m.ID, sorted[i-1].Description, m.Description)
			e.MigrationID = m.ID
			return nil, e
		}
		if m.Transform == nil && m.Prepare == nil {
			e := savedobjects.Errorf(savedobjects.KindRegistry, "migration %d has no transform", m.ID)
			e.MigrationID = m.ID
			return nil, e
		}
		for _, t := range m.Types {
			if _, err := savedobjects.ParseType(string(t)); err != nil {
				e := savedobjects.NewError(savedobjects.KindRegistry, err)
				e.MigrationID = m.ID
				return nil, e
			}
		}
	}

	return &Registry{migrations: sorted}, nil
}

// All returns every migration in ascending id order.
func (r *Registry) All() []savedobjects.Migration {
	return slices.Clone(r.migrations)
}

// Pending returns the migrations with an id greater than marker, in ascending order.
func (r *Registry) Pending(marker int) []savedobjects.Migration {
	i, _ := slices.BinarySearchFunc(r.migrations, marker+1, func(m savedobjects.Migration, id int) int {
		return cmp.Compare(m.ID, id)
	})
	return slices.Clone(r.migrations[i:])
}

// Latest returns the highest migration id, or 0 for an empty registry.
func (r *Registry) Latest() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].ID
}

// Len returns the number of registered migrations.
func (r *Registry) Len() int {
	return len(r.migrations)
}
