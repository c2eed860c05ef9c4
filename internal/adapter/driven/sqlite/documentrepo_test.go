package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

func TestDocumentRepo_UpsertAndGet(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))
	ctx := context.Background()

	err := repo.Upsert(ctx, "auth", []driven.Document{
		{"_id": "alice", "password": "hash-a"},
		{"_id": "bob", "password": "hash-b", "attempts": 3},
	})
	require.NoError(t, err)

	doc, err := repo.Get(ctx, "auth", "alice")
	require.NoError(t, err)
	assert.Equal(t, driven.Document{"_id": "alice", "password": "hash-a"}, doc)

	doc, err = repo.Get(ctx, "auth", "bob")
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), doc["attempts"])
}

func TestDocumentRepo_UpsertOverwrites(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "auth", []driven.Document{{"_id": "alice", "password": "old"}}))
	require.NoError(t, repo.Upsert(ctx, "auth", []driven.Document{{"_id": "alice", "password": "new"}}))

	doc, err := repo.Get(ctx, "auth", "alice")
	require.NoError(t, err)
	assert.Equal(t, "new", doc["password"])
}

func TestDocumentRepo_CollectionsAreIsolated(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "auth", []driven.Document{{"_id": "alice", "password": "x"}}))

	_, err := repo.Get(ctx, "other", "alice")
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestDocumentRepo_GetMissing(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))

	_, err := repo.Get(context.Background(), "auth", "ghost")

	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestDocumentRepo_Delete(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "auth", []driven.Document{{"_id": "alice", "password": "x"}}))
	require.NoError(t, repo.Delete(ctx, "auth", "alice"))

	_, err := repo.Get(ctx, "auth", "alice")
	assert.ErrorIs(t, err, driven.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, "auth", "alice"), driven.ErrNotFound)
}

func TestDocumentRepo_InvalidDocumentRollsBack(t *testing.T) {
	repo := NewDocumentRepo(setupTestDB(t))
	ctx := context.Background()

	err := repo.Upsert(ctx, "auth", []driven.Document{
		{"_id": "alice", "password": "x"},
		{"password": "no id"},
	})
	require.ErrorIs(t, err, driven.ErrInvalidDocument)

	_, err = repo.Get(ctx, "auth", "alice")
	assert.ErrorIs(t, err, driven.ErrNotFound)

	err = repo.Upsert(ctx, "auth", []driven.Document{{"_id": 7}})
	assert.ErrorIs(t, err, driven.ErrInvalidDocument)
}

func TestDocumentRepo_CreateCollectionIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateCollection(ctx, "default"))
	require.NoError(t, repo.CreateCollection(ctx, "default"))

	var n int
	require.NoError(t, db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, "default").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestDocumentRepo_Ping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDocumentRepo(db)

	require.NoError(t, repo.Ping(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, repo.Ping(context.Background()))
}

func TestNewDB_FileBacked(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storaged.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	version, err := RunMigrations(db.Writer)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	version, err = RunMigrations(db.Writer)
	require.NoError(t, err, "migrations are idempotent")
	assert.Equal(t, uint(1), version)
	require.NoError(t, db.Ping(ctx))

	repo := NewDocumentRepo(db)
	require.NoError(t, repo.Upsert(ctx, "auth", []driven.Document{{"_id": "alice", "password": "x"}}))
	require.NoError(t, db.Close())

	reopened, err := NewDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	doc, err := NewDocumentRepo(reopened).Get(ctx, "auth", "alice")
	require.NoError(t, err)
	assert.Equal(t, "x", doc["password"])
}
