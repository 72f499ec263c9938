package metrics

import "strconv"

// States lists the run phases reported by RunState.
var States = []string{"init", "determine_version", "running", "advance_marker", "done", "failed"}

// Collector wraps metrics and provides helper methods with pre-filled labels.
type Collector struct {
	index string
}

// NewCollector creates a new Collector for the given index.
func NewCollector(index string) *Collector {
	return &Collector{index: index}
}

// IncRuns increments the runs counter for an outcome.
func (c *Collector) IncRuns(outcome string) {
	RunsTotal.WithLabelValues(c.index, outcome).Inc()
}

// IncMigrationsCompleted increments the completed migrations counter.
func (c *Collector) IncMigrationsCompleted() {
	MigrationsCompletedTotal.WithLabelValues(c.index).Inc()
}

// AddDocuments records the migrated and skipped documents of a migration.
func (c *Collector) AddDocuments(migrationID int, migrated, skipped int) {
	id := strconv.Itoa(migrationID)
	DocumentsMigratedTotal.WithLabelValues(c.index, id).Add(float64(migrated))
	DocumentsSkippedTotal.WithLabelValues(c.index, id).Add(float64(skipped))
}

// IncDocumentsFailed increments the failed documents counter for a migration and error kind.
func (c *Collector) IncDocumentsFailed(migrationID int, kind string) {
	DocumentsFailedTotal.WithLabelValues(c.index, strconv.Itoa(migrationID), kind).Inc()
}

// SetMarkerVersion sets the marker gauge.
func (c *Collector) SetMarkerVersion(version int) {
	MarkerVersion.WithLabelValues(c.index).Set(float64(version))
}

// SetPendingMigrations sets the pending migrations gauge.
func (c *Collector) SetPendingMigrations(count int) {
	PendingMigrations.WithLabelValues(c.index).Set(float64(count))
}

// SetRunState sets the run state gauge. Sets value to 1 for the given state, 0 for others.
func (c *Collector) SetRunState(state string) {
	for _, s := range States {
		if s == state {
			RunState.WithLabelValues(c.index, s).Set(1)
		} else {
			RunState.WithLabelValues(c.index, s).Set(0)
		}
	}
}

// ObserveMigrationDuration records the duration of one migration.
func (c *Collector) ObserveMigrationDuration(migrationID int, seconds float64) {
	MigrationDuration.WithLabelValues(c.index, strconv.Itoa(migrationID)).Observe(seconds)
}

// ObserveRunDuration records the duration of a run.
func (c *Collector) ObserveRunDuration(seconds float64) {
	RunDuration.WithLabelValues(c.index).Observe(seconds)
}
