package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DocumentStore = (*DocumentRepo)(nil)

// DocumentRepo is the SQLite implementation of the DocumentStore port interface.
// Documents are stored as JSON text keyed by (collection, _id).
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Ping reports whether the database is reachable.
func (r *DocumentRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// CreateCollection registers a collection name; existing collections are left untouched.
func (r *DocumentRepo) CreateCollection(ctx context.Context, name string) error {
	const query = `INSERT OR IGNORE INTO collections (name) VALUES (?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}

// Get returns the document stored under id in collection.
func (r *DocumentRepo) Get(ctx context.Context, collection, id string) (driven.Document, error) {
	const query = `SELECT body FROM documents WHERE collection = ? AND id = ?`

	var body string
	err := r.db.Reader.QueryRowContext(ctx, query, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var doc driven.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Upsert stores every document in a single transaction, creating the
// collection if needed. Either all documents are written or none are.
func (r *DocumentRepo) Upsert(ctx context.Context, collection string, docs []driven.Document) error {
	type row struct {
		id   string
		body string
	}

	rows := make([]row, 0, len(docs))
	for i, doc := range docs {
		id, ok := doc[driven.DocumentIDKey].(string)
		if !ok || id == "" {
			return fmt.Errorf("%w: document %d has no string %s", driven.ErrInvalidDocument, i, driven.DocumentIDKey)
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("%w: encode document %q: %v", driven.ErrInvalidDocument, id, err)
		}
		rows = append(rows, row{id: id, body: string(body)})
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO collections (name) VALUES (?)`, collection); err != nil {
		return fmt.Errorf("ensure collection %q: %w", collection, err)
	}

	const query = `
		INSERT INTO documents (collection, id, body, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = CURRENT_TIMESTAMP`

	for _, rw := range rows {
		if _, err := tx.ExecContext(ctx, query, collection, rw.id, rw.body); err != nil {
			return fmt.Errorf("upsert document %s/%s: %w", collection, rw.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Delete removes the document stored under id in collection.
func (r *DocumentRepo) Delete(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = ? AND id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s/%s: rows affected: %w", collection, id, err)
	}
	if n == 0 {
		return driven.ErrNotFound
	}
	return nil
}
