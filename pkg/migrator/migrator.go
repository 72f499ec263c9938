// Package migrator is the entry point for upgrading saved objects at startup.
package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/builtin"
	"github.com/getpup/pupsourcing-savedobjects/coordinator"
	"github.com/getpup/pupsourcing-savedobjects/executor"
	"github.com/getpup/pupsourcing-savedobjects/marker"
	"github.com/getpup/pupsourcing-savedobjects/metrics"
	"github.com/getpup/pupsourcing-savedobjects/registry"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/getpup/pupsourcing/es"
)

// Re-export core types from the root package.
type (
	// Document is a persisted saved object.
	Document = savedobjects.Document

	// Migration is one numbered transformation over saved objects.
	Migration = savedobjects.Migration

	// RunReport describes the outcome of a run.
	RunReport = savedobjects.RunReport
)

// DefaultIndexName labels metrics when WithIndexName is not used.
const DefaultIndexName = ".siren"

// Option configures a Migrator.
type Option func(*config)

// config holds the internal configuration for creating a Migrator.
type config struct {
	store          store.DocumentStore
	db             *sql.DB
	tableConfig    sqlstore.TableConfig
	migrations     []savedobjects.Migration
	executor       executor.Applier
	batchSize      int
	sentinelID     string
	indexName      string
	logger         es.Logger
	metricsEnabled *bool
}

// Migrator runs the registered migrations against one document store.
type Migrator struct {
	coordinator *coordinator.Coordinator
	registry    *registry.Registry
	marker      *marker.Store
}

// Compile-time check that Migrator implements savedobjects.Migrator.
var _ savedobjects.Migrator = (*Migrator)(nil)

// New creates a new Migrator with the given options.
//
// Required options (one of):
//   - WithStore: document store to migrate
//   - WithDatabase: SQL database holding the saved objects table
//
// Optional configuration (with defaults):
//   - WithMigrations: migrations to apply (default: the built-in catalog)
//   - WithBatchSize: documents read per page (default: 100)
//   - WithSentinelID: id of the configuration document (default: "kibi")
//   - WithIndexName: index label used in metrics (default: ".siren")
//   - WithTableName: saved objects table for WithDatabase (default: "saved_objects")
//   - WithLogger: logger for observability (default: nil)
//   - WithMetricsEnabled: enable Prometheus metrics (default: true)
//   - WithExecutor: custom executor (default: executor.New)
//
// Example:
//
//	m, err := migrator.New(
//	    migrator.WithDatabase(db, sqlstore.Postgres),
//	    migrator.WithLogger(logger),
//	)
//
// Returns an error if the store is missing or the migrations are malformed.
func New(opts ...Option) (*Migrator, error) {
	cfg := &config{
		batchSize:   store.DefaultPageSize,
		sentinelID:  savedobjects.ConfigSentinelID,
		indexName:   DefaultIndexName,
		tableConfig: sqlstore.TableConfig{Table: sqlstore.DefaultTable},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.store == nil && cfg.db != nil {
		cfg.tableConfig.Logger = cfg.logger
		s, err := sqlstore.NewWithConfig(cfg.db, cfg.tableConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create document store: %w", err)
		}
		cfg.store = s
	}
	if cfg.store == nil {
		return nil, fmt.Errorf("document store is required: use WithStore or WithDatabase option")
	}
	if cfg.batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.batchSize)
	}
	if cfg.sentinelID == "" {
		return nil, fmt.Errorf("sentinel id must not be empty")
	}

	if cfg.migrations == nil {
		cfg.migrations = builtin.For(cfg.sentinelID)
	}
	reg, err := registry.New(cfg.migrations...)
	if err != nil {
		return nil, err
	}

	mk := marker.New(marker.Config{
		Store:      cfg.store,
		SentinelID: cfg.sentinelID,
		Logger:     cfg.logger,
	})

	var collector *metrics.Collector
	if cfg.metricsEnabled == nil || *cfg.metricsEnabled {
		collector = metrics.NewCollector(cfg.indexName)
	}

	return &Migrator{
		coordinator: coordinator.New(coordinator.Config{
			Store:     cfg.store,
			Registry:  reg,
			Marker:    mk,
			Executor:  cfg.executor,
			BatchSize: cfg.batchSize,
			Collector: collector,
			Logger:    cfg.logger,
		}),
		registry: reg,
		marker:   mk,
	}, nil
}

// Run applies every pending migration. See savedobjects.Migrator.
func (m *Migrator) Run(ctx context.Context) (savedobjects.RunReport, error) {
	return m.coordinator.Run(ctx)
}

// Pending returns the plan the next run would execute.
func (m *Migrator) Pending(ctx context.Context) (coordinator.Plan, error) {
	return m.coordinator.Pending(ctx)
}

// Version returns the current marker of the store.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	return m.marker.Read(ctx)
}

// Migrations returns the registered migrations in application order.
func (m *Migrator) Migrations() []savedobjects.Migration {
	return m.registry.All()
}

// WithStore sets the document store to migrate.
func WithStore(s store.DocumentStore) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithDatabase migrates the saved objects table of db. It is ignored when
// WithStore is also used.
func WithDatabase(db *sql.DB, dialect sqlstore.Dialect) Option {
	return func(c *config) {
		c.db = db
		c.tableConfig.Dialect = dialect
	}
}

// WithTableName sets a custom saved objects table for WithDatabase.
func WithTableName(table string) Option {
	return func(c *config) {
		c.tableConfig.Table = table
	}
}

// WithMigrations replaces the built-in catalog. Order does not matter.
func WithMigrations(migrations ...savedobjects.Migration) Option {
	return func(c *config) {
		c.migrations = append([]savedobjects.Migration{}, migrations...)
	}
}

// WithBatchSize sets the number of documents read per page.
func WithBatchSize(size int) Option {
	return func(c *config) {
		c.batchSize = size
	}
}

// WithSentinelID sets the id of the configuration document holding the marker.
func WithSentinelID(id string) Option {
	return func(c *config) {
		c.sentinelID = id
	}
}

// WithIndexName sets the index label reported in metrics.
func WithIndexName(name string) Option {
	return func(c *config) {
		c.indexName = name
	}
}

// WithLogger sets the logger for observability.
func WithLogger(logger es.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = &enabled
	}
}

// WithExecutor sets a custom executor.
func WithExecutor(exec executor.Applier) Option {
	return func(c *config) {
		c.executor = exec
	}
}

// CreateTable creates the saved objects table in db if it does not exist.
//
// This should typically be run once during deployment or startup.
func CreateTable(ctx context.Context, db *sql.DB, dialect sqlstore.Dialect) error {
	return CreateTableWithName(ctx, db, dialect, sqlstore.DefaultTable)
}

// CreateTableWithName creates a saved objects table with a custom name.
func CreateTableWithName(ctx context.Context, db *sql.DB, dialect sqlstore.Dialect, table string) error {
	s, err := sqlstore.NewWithConfig(db, sqlstore.TableConfig{Dialect: dialect, Table: table})
	if err != nil {
		return err
	}
	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}
