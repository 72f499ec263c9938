package builtin

import (
	"context"
	"regexp"
	"slices"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/hashicorp/go-version"
)

// ConsolidatedIntoAttribute marks a legacy configuration document whose
// settings were merged onto the sentinel document.
const ConsolidatedIntoAttribute = "kibi:consolidatedInto"

// legacyIDPattern matches the full x.y.z[-pre] ids of legacy configuration documents.
var legacyIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

type legacyConfig struct {
	version *version.Version
	doc     savedobjects.Document
}

// ConsolidateConfig merges legacy configuration documents, whose ids are
// semantic versions, onto the sentinel configuration document.
//
// The sentinel document keeps every key it already has. Among legacy
// documents the higher version wins. The marker attribute is never merged.
// Legacy documents are kept and marked with ConsolidatedIntoAttribute.
func ConsolidateConfig(sentinelID string) savedobjects.Migration {
	return savedobjects.Migration{
		ID:          ConsolidateConfigID,
		Description: "consolidate legacy configuration documents onto " + sentinelID,
		Types:       []savedobjects.Type{savedobjects.TypeConfig},
		AppliesTo: func(doc savedobjects.Document) bool {
			return doc.ID == sentinelID || isLegacyConfig(doc, sentinelID)
		},
		Prepare: func(ctx context.Context, src savedobjects.Source) (savedobjects.TransformFunc, error) {
			merged, sentinelFound, err := collectLegacySettings(ctx, src, sentinelID)
			if err != nil {
				return nil, err
			}
			if len(merged) > 0 && !sentinelFound {
				return nil, savedobjects.Errorf(savedobjects.KindTransform, "configuration document %q not found", sentinelID)
			}
			return consolidate(sentinelID, merged), nil
		},
		HaltOnFailure: true,
	}
}

func isLegacyConfig(doc savedobjects.Document, sentinelID string) bool {
	if doc.Type != savedobjects.TypeConfig || doc.ID == sentinelID {
		return false
	}
	_, ok := legacyVersion(doc.ID)
	return ok
}

// legacyVersion parses id as the version of a legacy configuration document.
func legacyVersion(id string) (*version.Version, bool) {
	if !legacyIDPattern.MatchString(id) {
		return nil, false
	}
	v, err := version.NewSemver(id)
	if err != nil {
		return nil, false
	}
	return v, true
}

// collectLegacySettings reads every legacy configuration document and merges
// their settings in ascending version order.
func collectLegacySettings(ctx context.Context, src savedobjects.Source, sentinelID string) (map[string]any, bool, error) {
	var legacy []legacyConfig
	sentinelFound := false

	for doc, err := range src.Scan(ctx, savedobjects.TypeConfig) {
		if err != nil {
			return nil, false, err
		}
		if doc.ID == sentinelID {
			sentinelFound = true
			continue
		}
		v, ok := legacyVersion(doc.ID)
		if !ok {
			continue
		}
		legacy = append(legacy, legacyConfig{version: v, doc: doc})
	}

	slices.SortStableFunc(legacy, func(a, b legacyConfig) int {
		return a.version.Compare(b.version)
	})

	merged := make(map[string]any)
	for _, l := range legacy {
		for key, value := range l.doc.Attributes {
			if key == savedobjects.MarkerAttribute || key == ConsolidatedIntoAttribute {
				continue
			}
			merged[key] = value
		}
	}
	return merged, sentinelFound, nil
}

func consolidate(sentinelID string, merged map[string]any) savedobjects.TransformFunc {
	return func(doc savedobjects.Document) (*savedobjects.Document, error) {
		if doc.ID == sentinelID {
			changed := false
			if doc.Attributes == nil {
				doc.Attributes = make(map[string]any)
			}
			for key, value := range merged {
				if _, ok := doc.Attributes[key]; ok {
					continue
				}
				doc.Attributes[key] = value
				changed = true
			}
			if !changed {
				return nil, nil
			}
			return &doc, nil
		}

		if !isLegacyConfig(doc, sentinelID) {
			return nil, nil
		}
		if into, _ := doc.String(ConsolidatedIntoAttribute); into == sentinelID {
			return nil, nil
		}
		if doc.Attributes == nil {
			doc.Attributes = make(map[string]any)
		}
		doc.Attributes[ConsolidatedIntoAttribute] = sentinelID
		return &doc, nil
	}
}
