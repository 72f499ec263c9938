//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
)

const testTable = "saved_objects_e2e"

// backend is a database reachable through an environment variable.
type backend struct {
	dialect sqlstore.Dialect
	env     string
}

var backends = []backend{
	{sqlstore.Postgres, "DATABASE_URL"},
	{sqlstore.MySQL, "MYSQL_DSN"},
}

// getTestDB returns a database connection for integration tests.
// It reads the backend's environment variable and skips the test if not set.
func getTestDB(t *testing.T, b backend) *sql.DB {
	t.Helper()

	dsn := os.Getenv(b.env)
	if dsn == "" {
		t.Skipf("%s not set, skipping %s integration test", b.env, b.dialect)
	}

	db, err := sqlstore.Open(b.dialect, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	return db
}

// setupTable creates the saved objects test table.
func setupTable(t *testing.T, db *sql.DB, d sqlstore.Dialect) *sqlstore.Store {
	t.Helper()

	s, err := sqlstore.NewWithConfig(db, sqlstore.TableConfig{Dialect: d, Table: testTable})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return s
}

// cleanupTable deletes every row of the test table.
// Errors are logged but don't fail the test (cleanup is best-effort).
func cleanupTable(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM " + testTable); err != nil {
		t.Logf("warning: failed to clean table: %v", err)
	}
}

// teardownTable drops the test table.
// Errors are logged but don't fail the test.
func teardownTable(t *testing.T, db *sql.DB, d sqlstore.Dialect) {
	t.Helper()

	stmt, err := sqlstore.DropSchema(d, testTable)
	if err != nil {
		t.Logf("warning: %v", err)
		return
	}
	if _, err := db.Exec(stmt); err != nil {
		t.Logf("warning: failed to drop table: %v", err)
	}
}
