package migrator

import (
	"context"
	"testing"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/builtin"
	"github.com/getpup/pupsourcing-savedobjects/executor"
	"github.com/getpup/pupsourcing-savedobjects/store/memory"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MissingStore(t *testing.T) {
	m, err := New()

	assert.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "document store is required")
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero batch size", []Option{WithStore(memory.New()), WithBatchSize(0)}},
		{"empty sentinel", []Option{WithStore(memory.New()), WithSentinelID("")}},
		{"duplicate migrations", []Option{WithStore(memory.New()), WithMigrations(builtin.RelationsDefaults(), builtin.RelationsDefaults())}},
		{"unknown dialect", []Option{WithDatabase(nil, "oracle")}},
		{"bad table name", []Option{WithDatabase(nil, sqlstore.SQLite), WithTableName("saved objects")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestNew_DefaultsToBuiltinCatalog(t *testing.T) {
	m, err := New(WithStore(memory.New()), WithMetricsEnabled(false))
	require.NoError(t, err)

	ids := make([]int, 0)
	for _, mig := range m.Migrations() {
		ids = append(ids, mig.ID)
	}
	assert.Equal(t, []int{builtin.RelationsDefaultsID, builtin.SourceFilteringID, builtin.ConsolidateConfigID}, ids)
}

func TestRun_WithStore(t *testing.T) {
	s := memory.New()
	_, err := s.Put(context.Background(), savedobjects.Document{
		ID:         "kibi",
		Type:       savedobjects.TypeConfig,
		Attributes: map[string]any{builtin.RelationsAttribute: ""},
	}, 0)
	require.NoError(t, err)

	m, err := New(WithStore(s), WithMetricsEnabled(false))
	require.NoError(t, err)

	report, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, report.Applied)

	v, err := m.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	plan, err := m.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plan.Pending)
}

func TestRun_CustomSentinel(t *testing.T) {
	s := memory.New()
	m, err := New(WithStore(s), WithSentinelID("siren"), WithMetricsEnabled(false))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)

	doc, err := s.Get(context.Background(), "siren")
	require.NoError(t, err)
	assert.EqualValues(t, 3, doc.Attributes[savedobjects.MarkerAttribute])
}

func TestRun_WithExecutor(t *testing.T) {
	applier := executor.NewMockApplier()
	m, err := New(WithStore(memory.New()), WithExecutor(applier), WithIndexName("test-migrator"))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, applier.AppliedIDs())
}

func TestRun_WithDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := sqlstore.Open(sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateTableWithName(ctx, db, sqlstore.SQLite, "objects"))

	m, err := New(WithDatabase(db, sqlstore.SQLite), WithTableName("objects"), WithMetricsEnabled(false))
	require.NoError(t, err)

	report, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.ToVersion)

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCreateTable_IsIdempotent(t *testing.T) {
	db, err := sqlstore.Open(sqlstore.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, CreateTable(context.Background(), db, sqlstore.SQLite))
	require.NoError(t, CreateTable(context.Background(), db, sqlstore.SQLite))
}
