// Package builtin provides the migrations shipped with the saved-objects engine.
package builtin

import "github.com/getpup/pupsourcing-savedobjects"

// Migration ids of the built-in catalog.
const (
	RelationsDefaultsID = 1
	SourceFilteringID   = 2
	ConsolidateConfigID = 3
)

// All returns the built-in migrations for the default sentinel id, in construction order.
func All() []savedobjects.Migration {
	return For(savedobjects.ConfigSentinelID)
}

// For returns the built-in migrations, consolidating legacy configuration
// documents onto sentinelID.
func For(sentinelID string) []savedobjects.Migration {
	return []savedobjects.Migration{
		RelationsDefaults(),
		SourceFiltering(),
		ConsolidateConfig(sentinelID),
	}
}
