package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps documents in a single JSONB-backed table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an sqlx handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	scope TEXT NOT NULL DEFAULT '',
	id TEXT NOT NULL,
	doc JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, scope, id)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

// Get fetches a single document.
func (s *PostgresStore) Get(ctx context.Context, collection, scope, id string) ([]byte, error) {
	if err := validateKey(collection, scope, id); err != nil {
		return nil, err
	}
	const query = `SELECT doc FROM documents WHERE collection = $1 AND scope = $2 AND id = $3`
	var doc []byte
	if err := s.db.GetContext(ctx, &doc, query, collection, scope, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Put upserts a document, preserving created_at on overwrite.
func (s *PostgresStore) Put(ctx context.Context, collection, scope, id string, doc []byte) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	const query = `INSERT INTO documents (collection, scope, id, doc, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (collection, scope, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, collection, scope, id, doc, time.Now().UTC()); err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// Delete removes a document, reporting ErrNotFound when absent.
func (s *PostgresStore) Delete(ctx context.Context, collection, scope, id string) error {
	if err := validateKey(collection, scope, id); err != nil {
		return err
	}
	const query = `DELETE FROM documents WHERE collection = $1 AND scope = $2 AND id = $3`
	res, err := s.db.ExecContext(ctx, query, collection, scope, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all documents in a collection, optionally narrowed to a scope.
func (s *PostgresStore) List(ctx context.Context, collection, scope string) ([][]byte, error) {
	if err := validateKey(collection, scope, "-"); err != nil {
		return nil, err
	}
	var (
		docs [][]byte
		err  error
	)
	if scope == "" {
		const query = `SELECT doc FROM documents WHERE collection = $1 ORDER BY created_at`
		err = s.db.SelectContext(ctx, &docs, query, collection)
	} else {
		const query = `SELECT doc FROM documents WHERE collection = $1 AND scope = $2 ORDER BY created_at`
		err = s.db.SelectContext(ctx, &docs, query, collection, scope)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
