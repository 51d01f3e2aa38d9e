package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/galleryerr"
	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/internal/layout"
)

// GalleryHandler serves the two relpath-rooted endpoints of spec.md §6:
// directory listings (trailing slash) and original file bytes (no
// trailing slash, with an optional usha disambiguator).
type GalleryHandler struct {
	engine *layout.Engine
	syncer *index.Syncer
	cfg    *config.Config
}

func NewGalleryHandler(engine *layout.Engine, syncer *index.Syncer, cfg *config.Config) *GalleryHandler {
	return &GalleryHandler{engine: engine, syncer: syncer, cfg: cfg}
}

// Serve dispatches on the request path's trailing slash, matching
// spec.md §6's two distinct relpath-rooted routes mounted on the same
// wildcard pattern.
func (h *GalleryHandler) Serve(w http.ResponseWriter, r *http.Request) {
	relpath := strings.TrimPrefix(r.URL.Path, "/")
	if r.URL.Path == "/" || strings.HasSuffix(r.URL.Path, "/") {
		h.serveListing(w, r, strings.TrimSuffix(relpath, "/"))
		return
	}
	h.serveFile(w, r, relpath)
}

func (h *GalleryHandler) serveListing(w http.ResponseWriter, r *http.Request, relDir string) {
	dirPath := filepath.Join(h.cfg.ManagedRoot, relDir)
	sort := index.SortOrder(ParseSort(r))
	page := ParsePage(r)
	showDuplicates := ParseShowDuplicates(r)

	result, err := h.engine.Page(r.Context(), dirPath, sort, page, showDuplicates)
	if err != nil {
		RespondGalleryError(w, "gallery.listing", err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

func (h *GalleryHandler) serveFile(w http.ResponseWriter, r *http.Request, relpath string) {
	relDir, filename := path.Split(relpath)
	dirPath := filepath.Join(h.cfg.ManagedRoot, relDir)

	var (
		file *index.File
		dir  *index.Directory
	)

	if usha := r.URL.Query().Get("usha"); usha != "" {
		f, found, err := h.syncer.FileByUniqueSHA(r.Context(), usha)
		if err != nil {
			RespondGalleryError(w, "gallery.file", err)
			return
		}
		if !found || f.DeletePending {
			RespondGalleryError(w, "gallery.file", galleryerr.NotFound("gallery.file", errFileGone))
			return
		}
		d, found, err := h.syncer.DirectoryBySHA(r.Context(), f.HomeDirectory)
		if err != nil {
			RespondGalleryError(w, "gallery.file", err)
			return
		}
		if !found {
			RespondGalleryError(w, "gallery.file", galleryerr.NotFound("gallery.file", errFileGone))
			return
		}
		file, dir = f, d
	} else {
		if err := h.syncer.Sync(r.Context(), dirPath); err != nil {
			RespondGalleryError(w, "gallery.file", err)
			return
		}
		d, found, err := h.syncer.SearchForDirectory(r.Context(), dirPath)
		if err != nil {
			RespondGalleryError(w, "gallery.file", err)
			return
		}
		if !found {
			RespondGalleryError(w, "gallery.file", galleryerr.NotFound("gallery.file", errFileGone))
			return
		}
		files, _, err := h.syncer.ListDirectory(r.Context(), dirPath, index.SortNaturalName, true)
		if err != nil {
			RespondGalleryError(w, "gallery.file", err)
			return
		}
		f, ok := findFileByName(files, filename)
		if !ok {
			RespondGalleryError(w, "gallery.file", galleryerr.NotFound("gallery.file", errFileGone))
			return
		}
		file, dir = &f, d
	}

	absPath := filepath.Join(dir.FQPN, file.DiskName)
	info, err := os.Stat(absPath)
	if err != nil {
		RespondGalleryError(w, "gallery.file", classifyStatError(err))
		return
	}
	f, err := os.Open(absPath)
	if err != nil {
		RespondGalleryError(w, "gallery.file", classifyStatError(err))
		return
	}
	defer f.Close()

	http.ServeContent(w, r, file.Name, info.ModTime(), f)
}

func findFileByName(files []index.File, name string) (index.File, bool) {
	for _, f := range files {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return index.File{}, false
}

func classifyStatError(err error) error {
	if os.IsNotExist(err) {
		return galleryerr.NotFound("gallery.file", err)
	}
	if os.IsPermission(err) {
		return galleryerr.AccessDenied("gallery.file", err)
	}
	return galleryerr.Transient("gallery.file", err)
}

var errFileGone = notFoundErr("file no longer present in the index")

type notFoundErr string

func (e notFoundErr) Error() string { return string(e) }
