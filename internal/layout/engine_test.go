package layout

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
	"github.com/galleryhost/gallery/internal/index"
)

func newTestEngine(t *testing.T, managedRoot string, tweak func(*config.Config)) (*Engine, *index.Syncer) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.ManagedRoot = managedRoot
	if tweak != nil {
		tweak(cfg)
	}

	ft := filetype.New()
	ft.Load(filetype.DefaultSeeds())

	normalizer := identity.NewDefaultNormalizer()
	syncer := index.NewSyncer(db, normalizer, ft, cfg, nil)
	engine := NewEngine(db, syncer, ft, cfg)
	syncer.OnDirectoryValidated(engine.Invalidate)
	return engine, syncer
}

func TestPageGroupsDirectoriesBeforeFilesInNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("a"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	engine, _ := newTestEngine(t, dir, nil)
	page, err := engine.Page(context.Background(), dir, index.SortNaturalName, 1, true)
	require.NoError(t, err)

	require.Len(t, page.Entries, 3)
	assert.Equal(t, KindDirectory, page.Entries[0].Kind)
	assert.Equal(t, "sub", page.Entries[0].Name)
	assert.Equal(t, "A.jpg", page.Entries[1].Name)
	assert.Equal(t, "B.jpg", page.Entries[2].Name)
}

func TestPagePaginatesAcrossMultiplePages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	engine, _ := newTestEngine(t, dir, func(c *config.Config) { c.GalleryPageSize = 2 })
	ctx := context.Background()

	page1, err := engine.Page(ctx, dir, index.SortNaturalName, 1, true)
	require.NoError(t, err)
	assert.Len(t, page1.Entries, 2)
	assert.Equal(t, 3, page1.Pagination.PageCount)
	assert.Empty(t, page1.Pagination.PrevURL)
	assert.NotEmpty(t, page1.Pagination.NextURL)

	page3, err := engine.Page(ctx, dir, index.SortNaturalName, 3, true)
	require.NoError(t, err)
	assert.Len(t, page3.Entries, 1)
	assert.NotEmpty(t, page3.Pagination.PrevURL)
	assert.Empty(t, page3.Pagination.NextURL)
}

func TestPageFiltersTreeWideDuplicatesKeepingFirstNaturalPath(t *testing.T) {
	root := t.TempDir()
	sub1 := filepath.Join(root, "sub1")
	sub2 := filepath.Join(root, "sub2")
	require.NoError(t, os.Mkdir(sub1, 0755))
	require.NoError(t, os.Mkdir(sub2, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub1, "dup.jpg"), []byte("same-bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sub2, "dup.jpg"), []byte("same-bytes"), 0644))

	engine, _ := newTestEngine(t, root, nil)
	ctx := context.Background()

	// sub1 sorts before sub2 naturally, so sub1's copy is canonical.
	page1, err := engine.Page(ctx, sub1, index.SortNaturalName, 1, false)
	require.NoError(t, err)
	assert.Len(t, page1.Entries, 1)

	page2, err := engine.Page(ctx, sub2, index.SortNaturalName, 1, false)
	require.NoError(t, err)
	assert.Empty(t, page2.Entries)

	// show_duplicates=true always shows both.
	page2All, err := engine.Page(ctx, sub2, index.SortNaturalName, 1, true)
	require.NoError(t, err)
	assert.Len(t, page2All.Entries, 1)
}

func TestPageBreadcrumbsRunRootToCurrent(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	engine, _ := newTestEngine(t, root, nil)
	page, err := engine.Page(context.Background(), nested, index.SortNaturalName, 1, true)
	require.NoError(t, err)

	require.Len(t, page.Breadcrumbs, 3)
	// dir_sha256 identity folds case (spec.md §4.1), but the stored fqpn and
	// every derived display label preserve the real on-disk casing.
	assert.Equal(t, filepath.Base(root), page.Breadcrumbs[0].Label)
	assert.Equal(t, "a", page.Breadcrumbs[1].Label)
	assert.Equal(t, "b", page.Breadcrumbs[2].Label)
}

func TestPageSiblingsReflectSortOrderAmongParentSubdirectories(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"sub1", "sub2", "sub3"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0755))
	}

	engine, syncer := newTestEngine(t, root, nil)
	ctx := context.Background()
	require.NoError(t, syncer.Sync(ctx, root))

	page, err := engine.Page(ctx, filepath.Join(root, "sub2"), index.SortNaturalName, 1, true)
	require.NoError(t, err)

	require.NotNil(t, page.Siblings.Prev)
	require.NotNil(t, page.Siblings.Next)
	assert.Equal(t, "sub1", page.Siblings.Prev.Name)
	assert.Equal(t, "sub3", page.Siblings.Next.Name)
}

func TestResyncOfChangedDirectoryPurgesCachedPage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("a"), 0644))

	engine, _ := newTestEngine(t, dir, nil)
	ctx := context.Background()

	page, err := engine.Page(ctx, dir, index.SortNaturalName, 1, true)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("b"), 0644))

	// Page's own call to Sync sees the directory changed on disk and runs a
	// full sync, whose OnDirectoryValidated hook purges the Layout Cache,
	// so the page is recomputed with both entries.
	resynced, err := engine.Page(ctx, dir, index.SortNaturalName, 1, true)
	require.NoError(t, err)
	assert.Len(t, resynced.Entries, 2)

	// An explicit Invalidate likewise leaves the next Page call fresh.
	dirSHA256 := identity.DirSHA256(identity.CanonicalDir(dir))
	engine.Invalidate(dirSHA256)

	fresh, err := engine.Page(ctx, dir, index.SortNaturalName, 1, true)
	require.NoError(t, err)
	assert.Len(t, fresh.Entries, 2)
}
