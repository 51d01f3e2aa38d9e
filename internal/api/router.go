// Package api wires the three endpoints of spec.md §6 onto a chi.Mux:
// directory listings and file bytes under the managed root's relpath
// tree, and SHA-addressed thumbnail bytes.
package api

import (
	"net/http"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/galleryhost/gallery/internal/api/handlers"
	apimiddleware "github.com/galleryhost/gallery/internal/api/middleware"
	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/internal/layout"
	"github.com/galleryhost/gallery/internal/thumbnail"
)

// Dependencies holds everything NewRouter needs to construct handlers.
type Dependencies struct {
	Config   *config.Config
	Engine   *layout.Engine
	Syncer   *index.Syncer
	Pipeline *thumbnail.Pipeline
}

// NewRouter builds the gallery's HTTP surface.
func NewRouter(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID) // must precede the logger to capture the request ID
	r.Use(apimiddleware.HTTPLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	galleryHandler := handlers.NewGalleryHandler(deps.Engine, deps.Syncer, deps.Config)
	thumbnailHandler := handlers.NewThumbnailHandler(deps.Pipeline)

	// Directory listings (JSON) and raw file bytes share the wildcard
	// route; CAFxX's content-type-aware adapter compresses both there.
	jsonCompressor, err := httpcompression.DefaultAdapter()
	if err != nil {
		log.Error().Err(err).Msg("failed to create HTTP compression adapter")
		jsonCompressor = func(next http.Handler) http.Handler { return next }
	}

	// Thumbnail bytes get the size-tiered compressor instead. It only
	// compresses text, JSON, XML and JavaScript content types, so image
	// thumbnails pass through it unchanged.
	byteCompressor := apimiddleware.SelectiveCompress(4096, 5, true, true)

	r.With(jsonCompressor).Get("/*", galleryHandler.Serve)
	r.With(byteCompressor).Get("/thumbnail/{sha256}/{size}", thumbnailHandler.Serve)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return r
}
