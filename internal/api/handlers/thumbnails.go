package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galleryhost/gallery/internal/thumbnail"
)

// ThumbnailHandler serves GET /thumbnail/{sha256}/{size} (spec.md §6).
type ThumbnailHandler struct {
	pipeline *thumbnail.Pipeline
}

func NewThumbnailHandler(pipeline *thumbnail.Pipeline) *ThumbnailHandler {
	return &ThumbnailHandler{pipeline: pipeline}
}

// Serve returns the thumbnail bytes for one size, or 404 if no record
// exists yet or the requested slot is still empty (spec.md §6: "Clients
// must be prepared to retry on 404 for files recently added").
func (h *ThumbnailHandler) Serve(w http.ResponseWriter, r *http.Request) {
	sha256 := chi.URLParam(r, "sha256")
	size := chi.URLParam(r, "size")

	if sha256 == "" || !validSize(size) {
		RespondError(w, http.StatusBadRequest, "invalid thumbnail request")
		return
	}

	// GetOrCreate, not Send: a request thread must not block on
	// generation (spec.md §5, "the request path submits and returns; the
	// record fills asynchronously"). Missing slots schedule background
	// work and return 404 now, matching spec.md §6's documented
	// retry-on-404 contract.
	rec, err := h.pipeline.GetOrCreate(r.Context(), sha256)
	if err != nil {
		RespondGalleryError(w, "thumbnail.serve", err)
		return
	}
	blob := rec.Slot(size)
	if len(blob) == 0 {
		RespondError(w, http.StatusNotFound, "no thumbnail yet")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(blob))
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

func validSize(size string) bool {
	switch size {
	case "small", "medium", "large":
		return true
	default:
		return false
	}
}
