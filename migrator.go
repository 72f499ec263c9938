package savedobjects

import "context"

// Migrator upgrades persisted saved objects to the current schema.
type Migrator interface {
	// Run applies every pending migration in ascending id order and advances the
	// version marker.
	//
	// Run will:
	// 1. Read the version marker from the configuration document
	// 2. Select the migrations newer than the marker
	// 3. Scan and transform the candidate documents of each migration, one at a time
	// 4. Persist the highest applied id as the new marker
	//
	// Run returns an error if:
	// - The store cannot be read at startup
	// - A migration with HaltOnFailure fails on a document
	// - The marker cannot be written
	//
	// The caller must not serve traffic when Run returns an error.
	Run(ctx context.Context) (RunReport, error)
}
