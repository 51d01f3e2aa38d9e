package thumbnail

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/database"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/index"
)

type fakeBackend struct {
	calls int32
	err   error
}

func (b *fakeBackend) Generate(ctx context.Context, data []byte, sizes map[string]Size) (map[string][]byte, error) {
	atomic.AddInt32(&b.calls, 1)
	if b.err != nil {
		return nil, b.err
	}
	out := make(map[string][]byte, len(sizes))
	for name := range sizes {
		out[name] = []byte("thumb-" + name)
	}
	return out, nil
}

func newPipelineFixture(t *testing.T, backend ImageBackend) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("pretend-image-bytes"), 0644))

	db, err := database.New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	idxStore := index.NewStore(db)
	require.NoError(t, idxStore.UpsertDirectory(context.Background(), &index.Directory{
		DirSHA256: "dir-sha",
		FQPN:      dir,
	}))
	require.NoError(t, idxStore.UpsertFile(context.Background(), &index.File{
		UniqueSHA256:  "unique-a",
		HomeDirectory: "dir-sha",
		Name:          "a.jpg",
		DiskName:      "a.jpg",
		FileSHA256:    "content-sha",
		FiletypeExt:   ".jpg",
	}))

	ft := filetype.New()
	ft.Load(filetype.DefaultSeeds())

	store := NewStore(db)
	resolver := index.NewResolver(db)
	cfg := config.Default()

	p := NewPipeline(store, resolver, ft, backend, cfg, nil)
	t.Cleanup(p.Close)
	return p, "content-sha"
}

func TestGetOrCreateReturnsPartialThenCompletesInBackground(t *testing.T) {
	p, sha := newPipelineFixture(t, &fakeBackend{})

	rec, err := p.GetOrCreate(context.Background(), sha)
	require.NoError(t, err)
	assert.False(t, rec.Complete())

	require.Eventually(t, func() bool {
		rec, err := p.GetOrCreate(context.Background(), sha)
		return err == nil && rec.Complete()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendGeneratesSynchronouslyOnFirstRequest(t *testing.T) {
	p, sha := newPipelineFixture(t, &fakeBackend{})

	blob, err := p.Send(context.Background(), sha, "small")
	require.NoError(t, err)
	assert.Equal(t, []byte("thumb-small"), blob)
}

func TestSendUnknownSizeReturnsNotFound(t *testing.T) {
	p, sha := newPipelineFixture(t, &fakeBackend{})

	_, err := p.Send(context.Background(), sha, "huge")
	assert.Error(t, err)
}

func TestSendBackendErrorWritesBrokenSentinelOnce(t *testing.T) {
	backend := &fakeBackend{err: ErrUnsupportedSource}
	p, sha := newPipelineFixture(t, backend)

	blob, err := p.Send(context.Background(), sha, "small")
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	calls := atomic.LoadInt32(&backend.calls)

	// A second request for the same slot must not retry generation: the
	// sentinel is already persisted (spec.md §4.4.5, "do not retry").
	blob2, err := p.Send(context.Background(), sha, "small")
	require.NoError(t, err)
	assert.Equal(t, blob, blob2)
	assert.Equal(t, calls, atomic.LoadInt32(&backend.calls))
}

func TestInvalidateClearsGeneratedSlot(t *testing.T) {
	p, sha := newPipelineFixture(t, &fakeBackend{})

	_, err := p.Send(context.Background(), sha, "small")
	require.NoError(t, err)

	require.NoError(t, p.Invalidate(context.Background(), sha))

	rec, found, err := p.store.Get(context.Background(), sha)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, rec.Small)
}
