package migrations

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	"github.com/spf13/afero"
)

// Config configures migration generation for the saved objects table.
type Config struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// Table is the name of the saved objects table
	Table string

	// Fs is the filesystem the file is written to (default: OS filesystem)
	Fs afero.Fs
}

// DefaultConfig returns the default configuration for saved objects migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:   "migrations",
		OutputFilename: fmt.Sprintf("%s_init_saved_objects.sql", timestamp),
		Table:          sqlstore.DefaultTable,
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	return Generate(sqlstore.Postgres, config)
}

// GenerateMySQL generates a MySQL/MariaDB migration file.
func GenerateMySQL(config *Config) error {
	return Generate(sqlstore.MySQL, config)
}

// GenerateSQLite generates a SQLite migration file.
func GenerateSQLite(config *Config) error {
	return Generate(sqlstore.SQLite, config)
}

// GenerateDuckDB generates a DuckDB migration file.
func GenerateDuckDB(config *Config) error {
	return Generate(sqlstore.DuckDB, config)
}

// Generate writes the migration file for the given dialect.
func Generate(dialect sqlstore.Dialect, config *Config) error {
	sql, err := Render(dialect, config.Table)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fs := config.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	// Ensure output folder exists
	if err := fs.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := afero.WriteFile(fs, outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

// Render returns the migration script for the given dialect and table.
func Render(dialect sqlstore.Dialect, table string) (string, error) {
	stmts, err := sqlstore.Schema(dialect, table)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Saved Objects Table Migration\n-- Generated: %s\n-- Database: %s\n\n", time.Now().Format(time.RFC3339), dialect)
	b.WriteString("-- One row per saved object. version guards optimistic concurrency,\n")
	b.WriteString("-- created_seq bounds scans to the documents present when they started.\n")
	for _, stmt := range stmts {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	return b.String(), nil
}
