// Command migrate-gen generates SQL migration files creating the saved objects table.
//
// Usage:
//
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --output migrations --filename init.sql
//
// Or with go generate:
//
//	//go:generate go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --output migrations
//
// Generate migrations for different database adapters:
//
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --adapter postgres
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --adapter mysql
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --adapter sqlite
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --adapter duckdb
//
// Customize the table name:
//
//	go run github.com/getpup/pupsourcing-savedobjects/cmd/migrate-gen --table kibi_objects
package main

import (
	"fmt"
	"os"

	"github.com/getpup/pupsourcing-savedobjects/pkg/migrations"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		adapter        = flag.String("adapter", "postgres", "Database adapter: postgres, mysql, sqlite or duckdb")
		outputFolder   = flag.String("output", "migrations", "Output folder for migration file")
		outputFilename = flag.String("filename", "", "Output filename (default: timestamp-based)")
		table          = flag.String("table", sqlstore.DefaultTable, "Name of the saved objects table")
	)

	flag.Parse()

	dialect, err := sqlstore.ParseDialect(*adapter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: unsupported adapter '%s'. Supported adapters are: postgres, mysql, sqlite, duckdb\n", *adapter)
		os.Exit(1)
	}

	config := migrations.DefaultConfig()
	config.OutputFolder = *outputFolder
	config.Table = *table

	if *outputFilename != "" {
		config.OutputFilename = *outputFilename
	}

	if err := migrations.Generate(dialect, &config); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s migration: %s/%s\n", dialect, config.OutputFolder, config.OutputFilename)
}
