package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/database"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/identity"
)

func newTestSyncer(t *testing.T, managedRoot string) (*Syncer, *database.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "gallery.db")
	db, err := database.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.ManagedRoot = managedRoot

	ft := filetype.New()
	ft.Load(filetype.DefaultSeeds())

	normalizer := identity.NewDefaultNormalizer()
	syncer := NewSyncer(db, normalizer, ft, cfg, nil)
	return syncer, db
}

func TestSyncTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("hello"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()

	require.NoError(t, syncer.Sync(ctx, dir))
	first, found, err := syncer.SearchForDirectory(ctx, dir)
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, syncer.Sync(ctx, dir))
	second, found, err := syncer.SearchForDirectory(ctx, dir)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, first.CombinedSHA256, second.CombinedSHA256)
	assert.Equal(t, 1, second.CountFiles)
	assert.Equal(t, 1, second.CountSubdirs)
}

func TestSyncEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()

	require.NoError(t, syncer.Sync(ctx, dir))
	d, found, err := syncer.SearchForDirectory(ctx, dir)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 0, d.CountFiles)
	assert.Equal(t, 0, d.CountSubdirs)
	assert.Equal(t, identity.CombinedSHA256(nil), d.CombinedSHA256)
}

func TestCaseRenamePreservesFileIdentity(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "Foo.JPG")
	require.NoError(t, os.WriteFile(original, []byte("content"), 0644))

	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()
	require.NoError(t, syncer.Sync(ctx, dir))

	files, _, err := syncer.ListDirectory(ctx, dir, SortNaturalName, true)
	require.NoError(t, err)
	require.Len(t, files, 1)
	originalSHA := files[0].UniqueSHA256

	require.NoError(t, os.Rename(original, filepath.Join(dir, "Foo.Jpg")))
	require.NoError(t, syncer.MarkInvalid(ctx, dir))
	require.NoError(t, syncer.Sync(ctx, dir))

	files, _, err = syncer.ListDirectory(ctx, dir, SortNaturalName, true)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, originalSHA, files[0].UniqueSHA256, "case-only rename must preserve unique_sha256")
}

func TestSyncMissingDirectoryReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()

	missing := filepath.Join(dir, "gone")
	err := syncer.Sync(ctx, missing)
	assert.Error(t, err)
}

func TestListDirectorySuppressesDuplicateContentByDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("same"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("same"), 0644))

	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()
	require.NoError(t, syncer.Sync(ctx, dir))

	deduped, _, err := syncer.ListDirectory(ctx, dir, SortNaturalName, false)
	require.NoError(t, err)
	assert.Len(t, deduped, 1)

	all, _, err := syncer.ListDirectory(ctx, dir, SortNaturalName, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSyncMixedCaseDirectoryAndFileAreReadable(t *testing.T) {
	dir := t.TempDir() // t.TempDir() itself embeds the PascalCase test name.
	sub := filepath.Join(dir, "MixedCase")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "Photo.JPG"), []byte("bytes"), 0644))

	syncer, _ := newTestSyncer(t, dir)
	ctx := context.Background()
	require.NoError(t, syncer.Sync(ctx, dir))

	subdir, found, err := syncer.SearchForDirectory(ctx, sub)
	require.NoError(t, err)
	require.True(t, found, "mixed-case subdirectory must be found by its real path, not a lower-cased one")
	assert.Equal(t, sub+string(filepath.Separator), subdir.FQPN, "FQPN must preserve on-disk casing for os.Stat/os.ReadDir/os.Open")

	require.NoError(t, syncer.Sync(ctx, sub))
	files, _, err := syncer.ListDirectory(ctx, sub, SortNaturalName, true)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Photo.JPG", files[0].DiskName, "DiskName must be the literal on-disk filename, not the title-cased display name")

	// The literal join of FQPN + DiskName must be openable on disk.
	f, err := os.Open(filepath.Join(subdir.FQPN, files[0].DiskName))
	require.NoError(t, err)
	defer f.Close()
}

func TestNaturalLessOrdersDigitRuns(t *testing.T) {
	assert.True(t, naturalLess("f2.jpg", "f10.jpg"))
	assert.False(t, naturalLess("f10.jpg", "f2.jpg"))
	assert.True(t, naturalLess("a.jpg", "b.jpg"))
}
