package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Document is a JSON object whose top-level fields can be merged independently
type Document map[string]json.RawMessage

// DocumentRepository is a key-value document store on top of the documents table.
// Documents are addressed by (collection, key).
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new repository instance
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get returns the document or ErrNotFound
func (r *DocumentRepository) Get(ctx context.Context, collection, key string) (Document, error) {
	return r.get(ctx, r.db, collection, key)
}

// Set writes fields into the document. Without merge the document is replaced;
// with merge only the given top-level fields are overwritten.
func (r *DocumentRepository) Set(ctx context.Context, collection, key string, fields map[string]interface{}, merge bool) error {
	return r.write(ctx, collection, key, fields, merge, false)
}

// Update merges fields into an existing document and fails with ErrNotFound if there is none
func (r *DocumentRepository) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	return r.write(ctx, collection, key, fields, true, true)
}

// Keys lists every key in a collection
func (r *DocumentRepository) Keys(ctx context.Context, collection string) ([]string, error) {
	var keys []string
	query := r.db.Rebind("SELECT doc_key FROM documents WHERE collection = ? ORDER BY doc_key")
	if err := r.db.SelectContext(ctx, &keys, query, collection); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return keys, nil
}

func (r *DocumentRepository) get(ctx context.Context, q sqlx.QueryerContext, collection, key string) (Document, error) {
	var body string
	query := r.db.Rebind("SELECT body FROM documents WHERE collection = ? AND doc_key = ?")
	err := sqlx.GetContext(ctx, q, &body, query, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc := Document{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (r *DocumentRepository) write(ctx context.Context, collection, key string, fields map[string]interface{}, merge, mustExist bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc := Document{}
	if merge {
		existing, err := r.get(ctx, tx, collection, key)
		switch {
		case err == nil:
			doc = existing
		case errors.Is(err, ErrNotFound):
			if mustExist {
				return ErrNotFound
			}
		default:
			return err
		}
	}

	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode field %q: %w", name, err)
		}
		doc[name] = raw
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := tx.Rebind(`
		INSERT INTO documents (collection, doc_key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, doc_key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`)
	if _, err := tx.ExecContext(ctx, query, collection, key, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}
