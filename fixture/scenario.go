// Package fixture loads declarative saved-object scenarios into document stores.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Entry describes one bulk load into a named index.
type Entry struct {
	// IndexName selects the store the documents are loaded into.
	IndexName string `yaml:"indexName"`

	// IndexDefinition optionally names a file declaring the index layout.
	IndexDefinition string `yaml:"indexDefinition,omitempty"`

	// Source names the bulk file holding the documents.
	Source string `yaml:"source"`

	// HaltOnFailure stops the load on the first rejected document.
	HaltOnFailure bool `yaml:"haltOnFailure"`
}

// Scenario is an ordered list of bulk loads.
type Scenario struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// IndexDefinition declares the document types an index accepts.
type IndexDefinition struct {
	TypeNames []string `yaml:"types"`
}

// ParseScenario decodes a YAML or JSON scenario manifest.
func ParseScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, errors.New("scenario is empty")
		}
		return Scenario{}, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// LoadScenario reads and parses the manifest at path from fs.
func LoadScenario(fs afero.Fs, path string) (Scenario, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to open scenario %s: %w", path, err)
	}
	defer f.Close()

	s, err := ParseScenario(f)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	return s, nil
}

// Validate checks that every entry names an index and a source.
func (s Scenario) Validate() error {
	if len(s.Entries) == 0 {
		return errors.New("scenario has no entries")
	}
	for i, e := range s.Entries {
		if e.IndexName == "" {
			return fmt.Errorf("entry %d: indexName is required", i)
		}
		if e.Source == "" {
			return fmt.Errorf("entry %d: source is required", i)
		}
	}
	return nil
}

// resolve returns p relative to the scenario directory.
func (s Scenario) resolve(p string) string {
	if filepath.IsAbs(p) || s.Dir == "" {
		return p
	}
	return filepath.Join(s.Dir, p)
}

// Types returns the declared document types, validated against the built-in set.
func (d IndexDefinition) Types() ([]savedobjects.Type, error) {
	types := make([]savedobjects.Type, 0, len(d.TypeNames))
	for _, name := range d.TypeNames {
		t, err := savedobjects.ParseType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
