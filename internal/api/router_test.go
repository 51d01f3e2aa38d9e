package api

import (
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
	"github.com/galleryhost/gallery/internal/thumbnail"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("hello"), 0644))

	db, err := database.New(filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.ManagedRoot = dir

	ft := filetype.New()
	ft.Load(filetype.DefaultSeeds())

	normalizer := identity.NewDefaultNormalizer()
	syncer := index.NewSyncer(db, normalizer, ft, cfg, nil)
	engine := layout.NewEngine(db, syncer, ft, cfg)
	syncer.OnDirectoryValidated(engine.Invalidate)

	thumbStore := thumbnail.NewStore(db)
	resolver := index.NewResolver(db)
	pipeline := thumbnail.NewPipeline(thumbStore, resolver, ft, nil, cfg, nil)
	t.Cleanup(pipeline.Close)

	return NewRouter(&Dependencies{
		Config:   cfg,
		Engine:   engine,
		Syncer:   syncer,
		Pipeline: pipeline,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouterThumbnailRouteTakesPriorityOverWildcard(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/thumbnail/deadbeef/small", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Never falls through to the gallery wildcard handler, which would
	// try (and fail) to resolve "thumbnail/deadbeef/small" as a relpath.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterGalleryWildcardServesListing(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
