package builtin

import (
	"strings"

	"github.com/getpup/pupsourcing-savedobjects"
)

// RelationsAttribute is the configuration attribute holding the serialized relations.
const RelationsAttribute = "kibi:relations"

// DefaultRelations is the serialized relations structure written in place of a blank value.
const DefaultRelations = `{"relationsIndices":[],"relationsDashboards":[],"version":2}`

// RelationsDefaults replaces blank relations on configuration documents with
// the default structure. Documents without the attribute are left alone.
func RelationsDefaults() savedobjects.Migration {
	return savedobjects.Migration{
		ID:            RelationsDefaultsID,
		Description:   "replace blank kibi:relations with the default structure",
		Types:         []savedobjects.Type{savedobjects.TypeConfig},
		AppliesTo:     hasBlankRelations,
		Transform:     defaultRelations,
		HaltOnFailure: true,
	}
}

func hasBlankRelations(doc savedobjects.Document) bool {
	s, ok := doc.String(RelationsAttribute)
	return ok && strings.TrimSpace(s) == ""
}

func defaultRelations(doc savedobjects.Document) (*savedobjects.Document, error) {
	if doc.Type != savedobjects.TypeConfig || !hasBlankRelations(doc) {
		return nil, nil
	}
	doc.Attributes[RelationsAttribute] = DefaultRelations
	return &doc, nil
}
