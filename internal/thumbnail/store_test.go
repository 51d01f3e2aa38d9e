package thumbnail

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryhost/gallery/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	rec, ok, err := store.Get(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestBulkUpsertThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkUpsert(ctx, []Record{
		{SHA256: "sha-a", Small: []byte("small-a"), Medium: []byte("medium-a")},
		{SHA256: "sha-b", Large: []byte("large-b")},
	}))

	rec, ok, err := store.Get(ctx, "sha-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("small-a"), rec.Small)
	assert.Equal(t, []byte("medium-a"), rec.Medium)
	assert.False(t, rec.Complete())

	rec, ok, err = store.Get(ctx, "sha-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("large-b"), rec.Large)
}

func TestBulkUpsertUpdatesExistingRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkUpsert(ctx, []Record{{SHA256: "sha-a", Small: []byte("v1")}}))
	require.NoError(t, store.BulkUpsert(ctx, []Record{{SHA256: "sha-a", Small: []byte("v2"), Medium: []byte("m")}}))

	rec, ok, err := store.Get(ctx, "sha-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), rec.Small)
	assert.Equal(t, []byte("m"), rec.Medium)
}

func TestInvalidateClearsSlotsButKeepsRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkUpsert(ctx, []Record{{
		SHA256: "sha-a", Small: []byte("s"), Medium: []byte("m"), Large: []byte("l"),
	}}))
	require.NoError(t, store.Invalidate(ctx, "sha-a"))

	rec, ok, err := store.Get(ctx, "sha-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, rec.Small)
	assert.Nil(t, rec.Medium)
	assert.Nil(t, rec.Large)
}

func TestDeleteOrphanedRemovesRecordsWithNoLiveFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.BulkUpsert(ctx, []Record{{SHA256: "orphan", Small: []byte("x")}}))

	n, err := store.DeleteOrphaned(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := store.Get(ctx, "orphan")
	require.NoError(t, err)
	assert.False(t, ok)
}
