package driven

import (
	"context"
	"errors"
)

// ErrInvalidDocument is returned when a document lacks a string "_id".
var ErrInvalidDocument = errors.New("invalid document")

// Document is a JSON object held in a storage collection. The "_id" key
// identifies it within its collection.
type Document map[string]any

// DocumentIDKey is the document field used as the record key.
const DocumentIDKey = "_id"

// DocumentStore defines the driven port used by the storaged service to
// persist namespaced JSON documents.
type DocumentStore interface {
	// CreateCollection registers a collection. Creating an existing
	// collection is a no-op.
	CreateCollection(ctx context.Context, name string) error

	// Get returns the document with the given id.
	// Returns ErrNotFound if the collection or document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Upsert stores each document under its "_id", replacing existing ones.
	// The collection is created on demand.
	Upsert(ctx context.Context, collection string, docs []Document) error

	// Delete removes the document with the given id.
	// Returns ErrNotFound if nothing was deleted.
	Delete(ctx context.Context, collection, id string) error

	// Ping reports whether the backing database is reachable.
	Ping(ctx context.Context) error
}
