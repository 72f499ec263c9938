package sqlstore

import "fmt"

// DefaultTable is the table holding saved objects when none is configured.
const DefaultTable = "saved_objects"

// Schema returns the statements creating the saved objects table and its
// indexes for the dialect. Every statement is idempotent.
//
// Columns:
//   - id: document id, primary key
//   - doc_type: saved object type
//   - schema_version: id of the last migration applied to the document
//   - version: optimistic concurrency token, incremented on every write
//   - created_seq: creation sequence used to snapshot scans
//   - attributes: JSON document body
func Schema(d Dialect, table string) ([]string, error) {
	if err := validateIdentifier(table, "table"); err != nil {
		return nil, err
	}

	switch d {
	case Postgres:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    doc_type TEXT NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 0,
    version BIGINT NOT NULL,
    created_seq BIGINT NOT NULL,
    attributes JSONB NOT NULL DEFAULT '{}'::jsonb
)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_doc_type ON %s (doc_type, id)`, table, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_seq ON %s (created_seq)`, table, table),
		}, nil
	case MySQL:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR(255) NOT NULL PRIMARY KEY,
    doc_type VARCHAR(64) NOT NULL,
    schema_version INT NOT NULL DEFAULT 0,
    version BIGINT NOT NULL,
    created_seq BIGINT NOT NULL,
    attributes JSON NOT NULL,
    INDEX idx_%s_doc_type (doc_type, id),
    INDEX idx_%s_created_seq (created_seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`, table, table, table),
		}, nil
	case SQLite:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    doc_type TEXT NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL,
    created_seq INTEGER NOT NULL,
    attributes TEXT NOT NULL DEFAULT '{}'
)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_doc_type ON %s (doc_type, id)`, table, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_seq ON %s (created_seq)`, table, table),
		}, nil
	case DuckDB:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id VARCHAR PRIMARY KEY,
    doc_type VARCHAR NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 0,
    version BIGINT NOT NULL,
    created_seq BIGINT NOT NULL,
    attributes VARCHAR NOT NULL DEFAULT '{}'
)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_doc_type ON %s (doc_type, id)`, table, table),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// DropSchema returns the statement dropping the saved objects table.
func DropSchema(d Dialect, table string) (string, error) {
	if err := validateIdentifier(table, "table"); err != nil {
		return "", err
	}
	if _, err := ParseDialect(string(d)); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table), nil
}
