package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getpup/pupsourcing-savedobjects"
)

// SourceFilteringAttribute is the index-pattern attribute holding the serialized source filters.
const SourceFilteringAttribute = "sourceFiltering"

// SourceFiltering rewrites plain string include/exclude filters of index
// patterns into arrays, at any nesting depth. A failing document is skipped.
func SourceFiltering() savedobjects.Migration {
	return savedobjects.Migration{
		ID:          SourceFilteringID,
		Description: "normalize sourceFiltering include/exclude to arrays",
		Types:       []savedobjects.Type{savedobjects.TypeIndexPattern},
		AppliesTo: func(doc savedobjects.Document) bool {
			_, ok := doc.Attributes[SourceFilteringAttribute]
			return ok
		},
		Transform: normalizeSourceFiltering,
	}
}

func normalizeSourceFiltering(doc savedobjects.Document) (*savedobjects.Document, error) {
	raw, ok := doc.Attributes[SourceFilteringAttribute]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, savedobjects.Errorf(savedobjects.KindTransform, "%s is %T, want a JSON string", SourceFilteringAttribute, raw)
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var filters any
	if err := json.Unmarshal([]byte(s), &filters); err != nil {
		return nil, savedobjects.NewError(savedobjects.KindTransform, fmt.Errorf("failed to parse %s: %w", SourceFilteringAttribute, err))
	}

	if !normalizeFilters(filters) {
		return nil, nil
	}

	out, err := json.Marshal(filters)
	if err != nil {
		return nil, savedobjects.NewError(savedobjects.KindTransform, fmt.Errorf("failed to encode %s: %w", SourceFilteringAttribute, err))
	}
	doc.Attributes[SourceFilteringAttribute] = string(out)
	return &doc, nil
}

// normalizeFilters rewrites v in place and reports whether anything changed.
func normalizeFilters(v any) bool {
	changed := false
	switch node := v.(type) {
	case map[string]any:
		for key, child := range node {
			if key == "include" || key == "exclude" {
				if s, ok := child.(string); ok {
					node[key] = toList(s)
					changed = true
					continue
				}
			}
			if normalizeFilters(child) {
				changed = true
			}
		}
	case []any:
		for _, child := range node {
			if normalizeFilters(child) {
				changed = true
			}
		}
	}
	return changed
}

func toList(s string) []any {
	if s == "" {
		return []any{}
	}
	return []any{s}
}
