package sqlstore

import (
	"database/sql"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a supported SQL database. Its value is the database/sql driver name.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite3"
	DuckDB   Dialect = "duckdb"
)

// Dialects lists every supported dialect.
var Dialects = []Dialect{Postgres, MySQL, SQLite, DuckDB}

// ParseDialect returns the dialect named by s.
func ParseDialect(s string) (Dialect, error) {
	for _, d := range Dialects {
		if string(d) == s {
			return d, nil
		}
	}
	if s == "sqlite" {
		return SQLite, nil
	}
	return "", fmt.Errorf("unsupported dialect %q", s)
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	switch d {
	case Postgres, DuckDB:
		return sq.Dollar
	default:
		return sq.Question
	}
}

// Open opens a database handle for the dialect. SQLite and DuckDB in-memory
// databases are private to one connection, so the pool is capped at one.
func Open(d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d, err)
	}
	if d == SQLite || d == DuckDB {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}
