package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunsTotal tracks migration runs by outcome (done, failed).
var RunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "savedobjects_migrator_runs_total",
		Help: "Total migration runs by outcome",
	},
	[]string{"index", "outcome"},
)

// MigrationsCompletedTotal tracks the number of migrations that completed over all candidates.
var MigrationsCompletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "savedobjects_migrator_migrations_completed_total",
		Help: "Total migrations completed",
	},
	[]string{"index"},
)

// DocumentsMigratedTotal tracks documents rewritten by a migration.
var DocumentsMigratedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "savedobjects_migrator_documents_migrated_total",
		Help: "Total documents rewritten",
	},
	[]string{"index", "migration"},
)

// DocumentsSkippedTotal tracks scanned documents a migration left untouched.
var DocumentsSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "savedobjects_migrator_documents_skipped_total",
		Help: "Total scanned documents left untouched",
	},
	[]string{"index", "migration"},
)

// DocumentsFailedTotal tracks per-document failures by error kind.
var DocumentsFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "savedobjects_migrator_documents_failed_total",
		Help: "Total document failures by error kind",
	},
	[]string{"index", "migration", "kind"},
)

// MarkerVersion tracks the version marker persisted in the configuration document.
var MarkerVersion = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "savedobjects_migrator_marker_version",
		Help: "Last applied migration id recorded in the configuration document",
	},
	[]string{"index"},
)

// PendingMigrations tracks the number of migrations selected by the current run.
var PendingMigrations = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "savedobjects_migrator_pending_migrations",
		Help: "Migrations pending at the start of the current run",
	},
	[]string{"index"},
)

// RunState tracks the run phase (value 1 for current phase, 0 otherwise).
var RunState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "savedobjects_migrator_run_state",
		Help: "Run phase (1 for current phase, 0 otherwise)",
	},
	[]string{"index", "state"},
)

// MigrationDuration tracks time spent applying one migration.
var MigrationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "savedobjects_migrator_migration_duration_seconds",
		Help:    "Time spent applying one migration",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"index", "migration"},
)

// RunDuration tracks the wall time of a full run.
var RunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "savedobjects_migrator_run_duration_seconds",
		Help:    "Wall time of a migration run",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"index"},
)
