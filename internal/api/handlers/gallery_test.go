package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	"github.com/galleryhost/gallery/internal/layout"
)

func newTestGalleryHandler(t *testing.T, managedRoot string) *GalleryHandler {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.ManagedRoot = managedRoot

	ft := filetype.New()
	ft.Load(filetype.DefaultSeeds())

	normalizer := identity.NewDefaultNormalizer()
	syncer := index.NewSyncer(db, normalizer, ft, cfg, nil)
	engine := layout.NewEngine(db, syncer, ft, cfg)
	syncer.OnDirectoryValidated(engine.Invalidate)

	return NewGalleryHandler(engine, syncer, cfg)
}

func TestServeListingReturnsPageJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("a"), 0644))

	h := newTestGalleryHandler(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page layout.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "A.jpg", page.Entries[0].Name)
}

func TestServeFileReturnsOriginalBytesByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("hello"), 0644))

	h := newTestGalleryHandler(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/a.jpg", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestServeFileMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	h := newTestGalleryHandler(t, dir)

	req := httptest.NewRequest(http.MethodGet, "/missing.jpg", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFileByUniqueSHADisambiguator(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("hello"), 0644))

	h := newTestGalleryHandler(t, dir)

	// Warm the index so the file row (and its unique SHA) exists.
	listReq := httptest.NewRequest(http.MethodGet, "/", nil)
	h.Serve(httptest.NewRecorder(), listReq)

	files, _, err := h.syncer.ListDirectory(listReq.Context(), dir, index.SortNaturalName, true)
	require.NoError(t, err)
	require.Len(t, files, 1)

	req := httptest.NewRequest(http.MethodGet, "/a.jpg?usha="+files[0].UniqueSHA256, nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}
