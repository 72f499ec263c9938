package coordinator

import (
	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/registry"
)

// Plan is the set of migrations a run must apply, selected from the marker.
type Plan struct {
	// From is the marker read at the start of the run.
	From int

	// Pending holds the migrations newer than From in ascending id order.
	Pending []savedobjects.Migration

	// Ahead is set when the marker is newer than every registered migration,
	// which happens when a store migrated by a newer release is opened by an older one.
	Ahead bool
}

// Target returns the marker the plan reaches when every pending migration completes.
func (p Plan) Target() int {
	if len(p.Pending) == 0 {
		return p.From
	}
	return p.Pending[len(p.Pending)-1].ID
}

// Planner selects pending migrations deterministically from a registry.
type Planner struct {
	registry *registry.Registry
}

// NewPlanner creates a new Planner over the given registry.
func NewPlanner(r *registry.Registry) *Planner {
	return &Planner{
		registry: r,
	}
}

// Plan returns the migrations with an id greater than marker.
func (p *Planner) Plan(marker int) Plan {
	return Plan{
		From:    marker,
		Pending: p.registry.Pending(marker),
		Ahead:   marker > p.registry.Latest(),
	}
}
