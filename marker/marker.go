package marker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
)

// Config configures the version marker store.
type Config struct {
	// Store holds the configuration document (required).
	Store store.DocumentStore

	// SentinelID is the id of the configuration document (default: savedobjects.ConfigSentinelID).
	SentinelID string

	// Attribute is the configuration attribute holding the marker (default: savedobjects.MarkerAttribute).
	Attribute string

	// Logger is an optional logger for observability.
	Logger es.Logger
}

// Store reads and advances the build number recorded in the configuration document.
type Store struct {
	config Config
}

// New creates a new marker Store with the given configuration.
// It applies default values for SentinelID and Attribute if empty.
func New(cfg Config) *Store {
	if cfg.SentinelID == "" {
		cfg.SentinelID = savedobjects.ConfigSentinelID
	}
	if cfg.Attribute == "" {
		cfg.Attribute = savedobjects.MarkerAttribute
	}
	return &Store{config: cfg}
}

// SentinelID returns the id of the configuration document holding the marker.
func (s *Store) SentinelID() string {
	return s.config.SentinelID
}

// Read returns the current marker.
// Returns 0 if the configuration document does not exist or has no marker.
func (s *Store) Read(ctx context.Context) (int, error) {
	doc, err := s.config.Store.Get(ctx, s.config.SentinelID)
	if errors.Is(err, savedobjects.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read configuration document: %w", err)
	}
	return s.value(doc)
}

func (s *Store) value(doc savedobjects.Document) (int, error) {
	raw, ok := doc.Attributes[s.config.Attribute]
	if !ok || raw == nil {
		return 0, nil
	}
	v, err := parseMarker(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in configuration document %q: %w", s.config.Attribute, s.config.SentinelID, err)
	}
	return v, nil
}

// Write sets the marker to value. It re-reads the configuration document and
// writes with the version it just read, so changes made earlier in the run are
// kept.
//
// It returns savedobjects.ErrInvalidTransition if value is lower than the
// stored marker, savedobjects.ErrConcurrentModification if the configuration
// document changed between the read and the write, and
// savedobjects.ErrStoreUnavailable if the store rejected the request.
// A missing configuration document is created.
func (s *Store) Write(ctx context.Context, value int) error {
	doc, err := s.config.Store.Get(ctx, s.config.SentinelID)
	switch {
	case errors.Is(err, savedobjects.ErrNotFound):
		doc = savedobjects.Document{
			ID:         s.config.SentinelID,
			Type:       savedobjects.TypeConfig,
			Attributes: map[string]any{},
		}
	case err != nil:
		return fmt.Errorf("failed to read configuration document: %w", err)
	}

	current, err := s.value(doc)
	if err != nil {
		return err
	}
	if value < current {
		e := savedobjects.Errorf(savedobjects.KindInvalidTransition, "cannot lower marker from %d to %d", current, value)
		e.DocumentID = s.config.SentinelID
		return e
	}

	if doc.Attributes == nil {
		doc.Attributes = map[string]any{}
	}
	doc.Attributes[s.config.Attribute] = value

	if _, err := s.config.Store.Put(ctx, doc, doc.Version); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}

	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "version marker advanced", "from", current, "to", value, "document", s.config.SentinelID)
	}
	return nil
}

// Ensure creates an empty configuration document if none exists, so that
// migrations can write onto it. It reports whether the document was created.
func (s *Store) Ensure(ctx context.Context) (bool, error) {
	_, err := s.config.Store.Get(ctx, s.config.SentinelID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, savedobjects.ErrNotFound) {
		return false, fmt.Errorf("failed to read configuration document: %w", err)
	}

	doc := savedobjects.Document{
		ID:         s.config.SentinelID,
		Type:       savedobjects.TypeConfig,
		Attributes: map[string]any{},
	}
	if _, err := s.config.Store.Put(ctx, doc, 0); err != nil {
		return false, fmt.Errorf("failed to create configuration document: %w", err)
	}

	if s.config.Logger != nil {
		s.config.Logger.Info(ctx, "created configuration document", "document", s.config.SentinelID)
	}
	return true, nil
}

func parseMarker(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
