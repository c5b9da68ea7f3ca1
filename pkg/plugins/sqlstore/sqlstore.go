// Package sqlstore provides a SQL-backed document plugin using SQLite. It
// persists documents in a single table keyed by kind and document key.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evannetwork/vade/pkg/vade"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	kind       TEXT NOT NULL,
	doc_key    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (kind, doc_key)
)`

// Store is a SQL-backed document plugin.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and initializes the
// schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	store := NewWithDB(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing database handle, mainly for tests. The caller
// is responsible for the schema.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the documents table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize documents table: %w", err)
	}
	return nil
}

// Name implements vade.Plugin.
func (s *Store) Name() string {
	return "sqlstore"
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadDocument fetches the stored document, declining unknown keys.
func (s *Store) ReadDocument(ctx context.Context, kind vade.Kind, key string) (vade.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM documents WHERE kind = ? AND doc_key = ?`,
		string(kind), key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return vade.NotApplicable(), nil
	} else if err != nil {
		return vade.Result{}, fmt.Errorf("failed to read document: %w", err)
	}
	return vade.Success(payload), nil
}

// WriteDocument upserts the document.
func (s *Store) WriteDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (kind, doc_key, payload, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, doc_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(kind), key, payload, time.Now().UTC(),
	)
	if err != nil {
		return vade.Result{}, fmt.Errorf("failed to write document: %w", err)
	}
	return vade.Done(), nil
}

// CheckDocument confirms the document when the stored copy matches the
// submitted payload.
func (s *Store) CheckDocument(ctx context.Context, kind vade.Kind, key, payload string) (vade.Result, error) {
	res, err := s.ReadDocument(ctx, kind, key)
	if err != nil {
		return vade.Result{}, err
	}
	stored, has := res.Value()
	if !has {
		return vade.NotApplicable(), nil
	}
	if stored != payload {
		return vade.Result{}, fmt.Errorf("stored document for %q does not match submitted payload", key)
	}
	return vade.Done(), nil
}
