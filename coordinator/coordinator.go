package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/executor"
	"github.com/getpup/pupsourcing-savedobjects/lifecycle"
	"github.com/getpup/pupsourcing-savedobjects/marker"
	"github.com/getpup/pupsourcing-savedobjects/metrics"
	"github.com/getpup/pupsourcing-savedobjects/registry"
	"github.com/getpup/pupsourcing-savedobjects/scanner"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// MarkerStore reads and advances the version marker.
type MarkerStore interface {
	Read(ctx context.Context) (int, error)
	Write(ctx context.Context, value int) error
	Ensure(ctx context.Context) (bool, error)
}

// Config holds configuration for the Coordinator.
type Config struct {
	// Store is the document store to migrate (required).
	Store store.DocumentStore

	// Registry is the catalog of known migrations (required).
	Registry *registry.Registry

	// Marker holds the version marker (default: marker store over Store).
	Marker MarkerStore

	// Source yields candidate documents (default: scanner over Store).
	Source savedobjects.Source

	// Executor applies migrations (default: executor over Store).
	Executor executor.Applier

	// BatchSize is the page size of the default scanner (default: 100).
	BatchSize int

	// Collector records run metrics (optional).
	Collector *metrics.Collector

	// Logger is for observability (optional).
	Logger es.Logger
}

// Coordinator runs the pending migrations of a registry against a store in
// ascending id order and advances the version marker.
type Coordinator struct {
	config  Config
	planner *Planner
}

// Compile-time check that Coordinator implements savedobjects.Migrator.
var _ savedobjects.Migrator = (*Coordinator)(nil)

// New creates a new Coordinator with the given configuration.
// Missing collaborators are built over cfg.Store.
func New(cfg Config) *Coordinator {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = store.DefaultPageSize
	}
	if cfg.Marker == nil {
		cfg.Marker = marker.New(marker.Config{Store: cfg.Store, Logger: cfg.Logger})
	}
	if cfg.Source == nil {
		cfg.Source = scanner.New(scanner.Config{Store: cfg.Store, BatchSize: cfg.BatchSize, Logger: cfg.Logger})
	}
	if cfg.Executor == nil {
		cfg.Executor = executor.New(executor.Config{Store: cfg.Store, Logger: cfg.Logger})
	}

	return &Coordinator{
		config:  cfg,
		planner: NewPlanner(cfg.Registry),
	}
}

// Pending returns the plan a run would execute now, without applying it.
func (c *Coordinator) Pending(ctx context.Context) (Plan, error) {
	current, err := c.config.Marker.Read(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to determine version: %w", err)
	}
	return c.planner.Plan(current), nil
}

// Run applies every pending migration and advances the version marker.
//
// The returned report is always populated. A non-nil error means the run
// halted: the marker then holds the id of the last migration that completed,
// and the caller must not serve traffic.
func (c *Coordinator) Run(ctx context.Context) (savedobjects.RunReport, error) {
	start := time.Now()
	report := savedobjects.RunReport{RunID: uuid.NewString()}
	tracker := lifecycle.New(lifecycle.Config{
		RunID:     report.RunID,
		Collector: c.config.Collector,
		Logger:    c.config.Logger,
	})

	finish := func(err error) (savedobjects.RunReport, error) {
		if err != nil {
			tracker.Fail(ctx)
		}
		report.State = tracker.State()
		report.Duration = time.Since(start)
		if c.config.Collector != nil {
			c.config.Collector.IncRuns(string(report.State))
			c.config.Collector.ObserveRunDuration(report.Duration.Seconds())
		}
		if c.config.Logger != nil {
			if err != nil {
				c.config.Logger.Error(ctx, "migration run halted",
					"runID", report.RunID, "from", report.FromVersion, "to", report.ToVersion, "error", err)
			} else {
				c.config.Logger.Info(ctx, "migration run complete",
					"runID", report.RunID, "from", report.FromVersion, "to", report.ToVersion,
					"applied", len(report.Applied), "failures", len(report.Failures), "duration", report.Duration)
			}
		}
		return report, err
	}

	if err := tracker.Transition(ctx, savedobjects.RunStateDetermineVersion); err != nil {
		return finish(err)
	}

	plan, err := c.Pending(ctx)
	if err != nil {
		return finish(err)
	}
	report.FromVersion = plan.From
	report.ToVersion = plan.From
	if c.config.Collector != nil {
		c.config.Collector.SetMarkerVersion(plan.From)
		c.config.Collector.SetPendingMigrations(len(plan.Pending))
	}
	if plan.Ahead && c.config.Logger != nil {
		c.config.Logger.Info(ctx, "store marker is newer than every known migration",
			"marker", plan.From, "latest", c.config.Registry.Latest())
	}

	if len(plan.Pending) == 0 {
		return finish(tracker.Transition(ctx, savedobjects.RunStateDone))
	}

	if _, err := c.config.Marker.Ensure(ctx); err != nil {
		return finish(err)
	}

	if err := tracker.Transition(ctx, savedobjects.RunStateRunning); err != nil {
		return finish(err)
	}

	completed := plan.From
	for _, m := range plan.Pending {
		if err := c.apply(ctx, m, &report); err != nil {
			return finish(c.halt(ctx, &report, completed, err))
		}
		completed = m.ID
		report.Applied = append(report.Applied, m.ID)
		if c.config.Collector != nil {
			c.config.Collector.IncMigrationsCompleted()
		}
	}

	if err := tracker.Transition(ctx, savedobjects.RunStateAdvanceMarker); err != nil {
		return finish(err)
	}
	if err := c.config.Marker.Write(ctx, completed); err != nil {
		return finish(fmt.Errorf("failed to advance marker to %d: %w", completed, err))
	}
	report.ToVersion = completed
	if c.config.Collector != nil {
		c.config.Collector.SetMarkerVersion(completed)
	}

	return finish(tracker.Transition(ctx, savedobjects.RunStateDone))
}

// apply binds m, scans its candidates and applies it, recording the result in report.
func (c *Coordinator) apply(ctx context.Context, m savedobjects.Migration, report *savedobjects.RunReport) error {
	start := time.Now()
	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "applying migration", "migrationID", m.ID, "description", m.Description)
	}

	bound, err := m.Bind(ctx, c.config.Source)
	if err != nil {
		if savedobjects.KindOf(err) == savedobjects.KindUnknown {
			e := savedobjects.NewError(savedobjects.KindTransform, err)
			e.MigrationID = m.ID
			err = e
		}
		return fmt.Errorf("failed to prepare migration %d: %w", m.ID, err)
	}

	result, err := c.config.Executor.Apply(ctx, bound, c.config.Source.Scan(ctx, m.Types...))
	report.Results = append(report.Results, result)
	report.Failures = append(report.Failures, result.Failures...)

	if c.config.Collector != nil {
		c.config.Collector.AddDocuments(m.ID, result.Applied, result.Skipped)
		for _, f := range result.Failures {
			c.config.Collector.IncDocumentsFailed(m.ID, savedobjects.KindOf(f.Err).String())
		}
		c.config.Collector.ObserveMigrationDuration(m.ID, time.Since(start).Seconds())
	}

	if err != nil {
		return fmt.Errorf("migration %d halted: %w", m.ID, err)
	}
	return nil
}

// halt records the last completed migration in the marker when it moved past
// the starting marker, and returns cause combined with any marker error.
func (c *Coordinator) halt(ctx context.Context, report *savedobjects.RunReport, completed int, cause error) error {
	if completed <= report.FromVersion {
		return cause
	}
	if err := c.config.Marker.Write(ctx, completed); err != nil {
		return multierror.Append(cause, fmt.Errorf("failed to record marker %d after halt: %w", completed, err))
	}
	report.ToVersion = completed
	if c.config.Collector != nil {
		c.config.Collector.SetMarkerVersion(completed)
	}
	return cause
}
