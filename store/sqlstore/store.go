package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing/es"
)

var columns = []string{"id", "doc_type", "schema_version", "version", "attributes"}

// TableConfig configures the table used by the store.
type TableConfig struct {
	// Dialect selects placeholder style and DDL. Required.
	Dialect Dialect

	// Table is the name of the saved objects table (default: DefaultTable).
	Table string

	// Logger is an optional logger for store operations.
	Logger es.Logger
}

// Store is a SQL implementation of DocumentStore backed by a single table.
// Writes use the version column for optimistic concurrency and scans snapshot
// on the created_seq column.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
	sb      sq.StatementBuilderType
	logger  es.Logger
}

// Compile-time checks.
var (
	_ store.DocumentStore = (*Store)(nil)
	_ store.Initializer   = (*Store)(nil)
)

// New creates a store using the default table name.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	return NewWithConfig(db, TableConfig{Dialect: dialect})
}

// NewWithConfig creates a store with a custom table configuration.
func NewWithConfig(db *sql.DB, config TableConfig) (*Store, error) {
	if config.Table == "" {
		config.Table = DefaultTable
	}
	if err := validateIdentifier(config.Table, "table"); err != nil {
		return nil, err
	}
	if _, err := ParseDialect(string(config.Dialect)); err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: config.Dialect,
		table:   config.Table,
		sb:      sq.StatementBuilder.PlaceholderFormat(config.Dialect.placeholder()),
		logger:  config.Logger,
	}, nil
}

// Initialize creates the saved objects table and its indexes if they do not exist.
func (s *Store) Initialize(ctx context.Context) error {
	stmts, err := Schema(s.dialect, s.table)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return store.Unavailable("initialize schema", err)
		}
	}
	if s.logger != nil {
		s.logger.Debug(ctx, "saved objects table ready", "table", s.table, "dialect", string(s.dialect))
	}
	return nil
}

// Get returns the document with the given id.
// Returns savedobjects.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, id string) (savedobjects.Document, error) {
	query, args, err := s.sb.Select(columns...).
		From(s.table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return savedobjects.Document{}, fmt.Errorf("failed to build get query: %w", err)
	}

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return savedobjects.Document{}, store.NotFound(id)
	}
	if err != nil {
		return savedobjects.Document{}, store.Unavailable("get document", err)
	}
	return doc, nil
}

// Put writes doc if the stored version equals expectedVersion.
// An expectedVersion of zero creates the document.
func (s *Store) Put(ctx context.Context, doc savedobjects.Document, expectedVersion int64) (int64, error) {
	attrs, err := encodeAttributes(doc.Attributes)
	if err != nil {
		return 0, err
	}

	if expectedVersion == 0 {
		return s.insert(ctx, doc, attrs)
	}

	query, args, err := s.sb.Update(s.table).
		Set("doc_type", string(doc.Type)).
		Set("schema_version", doc.SchemaVersion).
		Set("version", expectedVersion+1).
		Set("attributes", attrs).
		Where(sq.Eq{"id": doc.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.Unavailable("update document", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, store.Unavailable("check rows affected", err)
	}
	if rowsAffected == 0 {
		actual, err := s.currentVersion(ctx, doc.ID)
		if err != nil {
			return 0, err
		}
		return 0, store.Conflict(doc.ID, expectedVersion, actual)
	}

	return expectedVersion + 1, nil
}

// insert creates doc at version 1 with the next creation sequence.
func (s *Store) insert(ctx context.Context, doc savedobjects.Document, attrs string) (version int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, store.Unavailable("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seq, err := s.nextSeq(ctx, tx)
	if err != nil {
		return 0, err
	}

	query, args, err := s.sb.Insert(s.table).
		Columns("id", "doc_type", "schema_version", "version", "created_seq", "attributes").
		Values(doc.ID, string(doc.Type), doc.SchemaVersion, 1, seq, attrs).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			_ = tx.Rollback()
			actual, verr := s.currentVersion(ctx, doc.ID)
			if verr != nil {
				actual = -1
			}
			return 0, store.Conflict(doc.ID, 0, actual)
		}
		return 0, store.Unavailable("insert document", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, store.Unavailable("commit transaction", err)
	}
	return 1, nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx) (int64, error) {
	query, args, err := s.sb.Select("COALESCE(MAX(created_seq), 0) + 1").From(s.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build sequence query: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&seq); err != nil {
		return 0, store.Unavailable("read creation sequence", err)
	}
	return seq, nil
}

func (s *Store) currentVersion(ctx context.Context, id string) (int64, error) {
	query, args, err := s.sb.Select("version").From(s.table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build version query: %w", err)
	}
	var version int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, store.Unavailable("read document version", err)
	}
	return version, nil
}

// Search returns one page of matching documents ordered by id.
func (s *Store) Search(ctx context.Context, q store.Query, page store.Page) (result store.SearchResult, err error) {
	if page.Size <= 0 {
		page.Size = store.DefaultPageSize
	}

	snapshot := page.Snapshot
	if snapshot == 0 {
		query, args, err := s.sb.Select("COALESCE(MAX(created_seq), 0)").From(s.table).ToSql()
		if err != nil {
			return store.SearchResult{}, fmt.Errorf("failed to build snapshot query: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&snapshot); err != nil {
			return store.SearchResult{}, store.Unavailable("read snapshot", err)
		}
	}

	builder := s.sb.Select(columns...).
		From(s.table).
		Where(sq.LtOrEq{"created_seq": snapshot}).
		OrderBy("id").
		Limit(uint64(page.Size))
	if page.After != "" {
		builder = builder.Where(sq.Gt{"id": page.After})
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		builder = builder.Where(sq.Eq{"doc_type": types})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return store.SearchResult{}, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return store.SearchResult{}, store.Unavailable("search documents", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close rows: %w", closeErr)
		}
	}()

	result.Snapshot = snapshot
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return store.SearchResult{}, store.Unavailable("scan document", err)
		}
		result.Documents = append(result.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return store.SearchResult{}, store.Unavailable("iterate documents", err)
	}

	return result, nil
}

// BulkIndex creates or replaces documents without version checks.
func (s *Store) BulkIndex(ctx context.Context, docs []savedobjects.Document) ([]store.BulkItem, error) {
	items := make([]store.BulkItem, 0, len(docs))
	for _, doc := range docs {
		version, err := s.upsert(ctx, doc)
		items = append(items, store.BulkItem{ID: doc.ID, Version: version, Err: err})
		if savedobjects.KindOf(err) == savedobjects.KindStoreUnavailable {
			return items, err
		}
	}
	return items, nil
}

func (s *Store) upsert(ctx context.Context, doc savedobjects.Document) (int64, error) {
	version, err := s.currentVersion(ctx, doc.ID)
	if err != nil {
		return 0, err
	}
	return s.Put(ctx, doc, version)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (savedobjects.Document, error) {
	var (
		doc     savedobjects.Document
		docType string
		raw     []byte
	)
	if err := row.Scan(&doc.ID, &docType, &doc.SchemaVersion, &doc.Version, &raw); err != nil {
		return savedobjects.Document{}, err
	}
	doc.Type = savedobjects.Type(docType)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc.Attributes); err != nil {
			return savedobjects.Document{}, fmt.Errorf("failed to decode attributes of %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func encodeAttributes(attrs map[string]any) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(b), nil
}
