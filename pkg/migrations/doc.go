// Package migrations generates SQL migration files creating the saved objects
// table for PostgreSQL, MySQL/MariaDB, SQLite and DuckDB.
package migrations
