package fixture

import (
	"context"
	"fmt"
	"slices"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Fs is the filesystem scenario files are read from (default: OS filesystem).
	Fs afero.Fs

	// Stores maps index names to the stores documents are loaded into (required).
	Stores map[string]store.DocumentStore

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// LoadResult counts the documents of a load.
type LoadResult struct {
	Indexed int
	Failed  int
}

// Loader bulk-loads scenarios into document stores.
type Loader struct {
	config LoaderConfig
}

// NewLoader creates a new Loader with the given configuration.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	return &Loader{config: cfg}
}

// LoadFile reads the scenario at path and loads it.
func (l *Loader) LoadFile(ctx context.Context, path string) (LoadResult, error) {
	s, err := LoadScenario(l.config.Fs, path)
	if err != nil {
		return LoadResult{}, err
	}
	return l.Load(ctx, s)
}

// Load applies every entry of the scenario in order.
//
// Rejected documents stop the load when their entry sets HaltOnFailure.
// Otherwise they are logged and counted in LoadResult.Failed.
func (l *Loader) Load(ctx context.Context, s Scenario) (LoadResult, error) {
	var total LoadResult
	for i, e := range s.Entries {
		r, err := l.loadEntry(ctx, s, e)
		total.Indexed += r.Indexed
		total.Failed += r.Failed
		if err != nil {
			return total, fmt.Errorf("failed to load entry %d (%s): %w", i, e.IndexName, err)
		}
	}

	if l.config.Logger != nil {
		l.config.Logger.Info(ctx, "scenario loaded",
			"scenario", s.Name, "indexed", total.Indexed, "failed", total.Failed)
	}
	return total, nil
}

func (l *Loader) loadEntry(ctx context.Context, s Scenario, e Entry) (LoadResult, error) {
	st, ok := l.config.Stores[e.IndexName]
	if !ok {
		return LoadResult{}, fmt.Errorf("no store for index %q", e.IndexName)
	}

	var allowed []savedobjects.Type
	if e.IndexDefinition != "" {
		types, err := l.applyDefinition(ctx, st, s.resolve(e.IndexDefinition))
		if err != nil {
			return LoadResult{}, err
		}
		allowed = types
	} else if init, ok := st.(store.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return LoadResult{}, fmt.Errorf("failed to initialize index: %w", err)
		}
	}

	f, err := l.config.Fs.Open(s.resolve(e.Source))
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	actions, err := ParseBulk(f)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to parse %s: %w", e.Source, err)
	}

	var result LoadResult
	var rejected *multierror.Error
	docs := make([]savedobjects.Document, 0, len(actions))
	for _, a := range actions {
		switch {
		case a.Index != "" && a.Index != e.IndexName:
			rejected = multierror.Append(rejected, fmt.Errorf("document %q targets index %q", a.Document.ID, a.Index))
		case len(allowed) > 0 && !slices.Contains(allowed, a.Document.Type):
			rejected = multierror.Append(rejected, fmt.Errorf("document %q has type %s not declared by the index", a.Document.ID, a.Document.Type))
		default:
			docs = append(docs, a.Document)
			continue
		}
		result.Failed++
		if e.HaltOnFailure {
			return result, rejected.ErrorOrNil()
		}
	}

	items, err := st.BulkIndex(ctx, docs)
	if err != nil {
		return result, fmt.Errorf("failed to bulk index: %w", err)
	}
	for _, item := range items {
		if item.Err == nil {
			result.Indexed++
			continue
		}
		result.Failed++
		rejected = multierror.Append(rejected, fmt.Errorf("document %q: %w", item.ID, item.Err))
		if e.HaltOnFailure {
			return result, rejected.ErrorOrNil()
		}
	}

	if err := rejected.ErrorOrNil(); err != nil && l.config.Logger != nil {
		l.config.Logger.Error(ctx, "documents rejected", "index", e.IndexName, "failed", result.Failed, "error", err)
	}
	return result, nil
}

// applyDefinition reads the index definition at path, initializes the store
// when it supports it and returns the declared types.
func (l *Loader) applyDefinition(ctx context.Context, st store.DocumentStore, path string) ([]savedobjects.Type, error) {
	raw, err := afero.ReadFile(l.config.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index definition: %w", err)
	}
	var def IndexDefinition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to decode index definition %s: %w", path, err)
	}
	types, err := def.Types()
	if err != nil {
		return nil, fmt.Errorf("invalid index definition %s: %w", path, err)
	}

	if init, ok := st.(store.Initializer); ok {
		if err := init.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize index: %w", err)
		}
	}
	return types, nil
}
