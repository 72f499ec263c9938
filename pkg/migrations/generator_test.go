package migrations

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/spf13/afero"
)

func generate(t *testing.T, fn func(*Config) error, table string) string {
	t.Helper()
	fs := afero.NewMemMapFs()
	config := Config{
		OutputFolder:   "out",
		OutputFilename: "test_migration.sql",
		Table:          table,
		Fs:             fs,
	}

	if err := fn(&config); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	content, err := afero.ReadFile(fs, filepath.Join("out", "test_migration.sql"))
	if err != nil {
		t.Fatalf("Failed to read generated file: %v", err)
	}
	return string(content)
}

func TestGeneratePostgres(t *testing.T) {
	sql := generate(t, GeneratePostgres, "saved_objects")

	required := []string{
		"-- Database: postgres",
		"CREATE TABLE IF NOT EXISTS saved_objects",
		"id TEXT PRIMARY KEY",
		"version BIGINT NOT NULL",
		"created_seq BIGINT NOT NULL",
		"attributes JSONB NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_saved_objects_doc_type",
		"CREATE INDEX IF NOT EXISTS idx_saved_objects_created_seq",
	}
	for _, s := range required {
		if !strings.Contains(sql, s) {
			t.Errorf("migration missing required string: %s", s)
		}
	}
}

func TestGenerateMySQL(t *testing.T) {
	sql := generate(t, GenerateMySQL, "objects")

	required := []string{
		"-- Database: mysql",
		"CREATE TABLE IF NOT EXISTS objects",
		"id VARCHAR(255) NOT NULL PRIMARY KEY",
		"attributes JSON NOT NULL",
		"ENGINE=InnoDB",
	}
	for _, s := range required {
		if !strings.Contains(sql, s) {
			t.Errorf("migration missing required string: %s", s)
		}
	}
}

func TestGenerateSQLite(t *testing.T) {
	sql := generate(t, GenerateSQLite, "saved_objects")

	if !strings.Contains(sql, "attributes TEXT NOT NULL DEFAULT '{}'") {
		t.Error("missing attributes column")
	}
	if strings.Count(sql, ";\n") != 3 {
		t.Errorf("expected 3 statements, got %d", strings.Count(sql, ";\n"))
	}
}

func TestGenerateDuckDB(t *testing.T) {
	sql := generate(t, GenerateDuckDB, "saved_objects")

	if !strings.Contains(sql, "attributes VARCHAR NOT NULL") {
		t.Error("missing attributes column")
	}
}

func TestGenerate_InvalidTable(t *testing.T) {
	invalid := []string{"", "1objects", "saved-objects", "objects; DROP TABLE users"}

	for _, table := range invalid {
		config := Config{OutputFolder: "out", OutputFilename: "x.sql", Table: table, Fs: afero.NewMemMapFs()}
		if err := GeneratePostgres(&config); err == nil {
			t.Errorf("expected error for table %q", table)
		}
	}
}

func TestGenerate_UnknownDialect(t *testing.T) {
	config := Config{OutputFolder: "out", OutputFilename: "x.sql", Table: "t", Fs: afero.NewMemMapFs()}
	if err := Generate("oracle", &config); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.OutputFolder != "migrations" {
		t.Errorf("unexpected output folder %q", config.OutputFolder)
	}
	if !strings.HasSuffix(config.OutputFilename, "_init_saved_objects.sql") {
		t.Errorf("unexpected filename %q", config.OutputFilename)
	}
	if config.Table != sqlstore.DefaultTable {
		t.Errorf("unexpected table %q", config.Table)
	}
}

func TestRender_ExecutesOnSQLite(t *testing.T) {
	script, err := Render(sqlstore.SQLite, "saved_objects")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer db.Close()

	// Run twice to check the script is idempotent
	for i := 0; i < 2; i++ {
		if _, err := db.Exec(script); err != nil {
			t.Fatalf("Failed to execute migration (run %d): %v", i+1, err)
		}
	}

	if _, err := db.Exec(`INSERT INTO saved_objects (id, doc_type, version, created_seq) VALUES ('kibi', 'config', 1, 1)`); err != nil {
		t.Fatalf("Failed to insert into migrated table: %v", err)
	}
}
