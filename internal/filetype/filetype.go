// Package filetype implements C2: a read-only, O(1), process-wide registry
// mapping a dotted lower-cased extension to display/kind metadata.
package filetype

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/galleryhost/gallery/pkg/stringutils"
)

// NoneExt is the extension every lookup falls back to when the requested
// extension is empty, missing, or the literal "unknown" (spec.md §4.2).
const NoneExt = ".none"

// Filetype is a single registry entry.
type Filetype struct {
	Ext          string
	IsImage      bool
	IsPDF        bool
	IsMovie      bool
	IsArchive    bool
	IsDir        bool
	IsText       bool
	IsMarkdown   bool
	IsHTML       bool
	IsLink       bool
	Generic      bool
	Mimetype     string
	IconFilename string
	Color        string
	Thumbnail    []byte // optional sentinel preview for generic kinds
}

// Seed is one administrative seed-data row (spec.md §3, "Filetype ...
// populated by an administrative command from settings constants").
type Seed struct {
	Ext          string
	Kind         string // "image", "pdf", "movie", "archive", "dir", "text", "markdown", "html", "link", "" (generic)
	Mimetype     string
	IconFilename string
	Color        string
}

// Registry is the process-wide ext->Filetype map. After Load it changes
// only through an explicit ReloadFromSeed call, which swaps the map under
// the write lock; lookups take the read lock.
type Registry struct {
	mu      sync.RWMutex
	byExt   map[string]Filetype
	loadErr error
}

// New returns an empty registry with just the mandatory .none entry, so
// every lookup resolves even before Load runs or if Load fails
// (spec.md §4.2: "Load failure is non-fatal").
func New() *Registry {
	r := &Registry{byExt: map[string]Filetype{}}
	r.installNoneFallback()
	return r
}

func (r *Registry) installNoneFallback() {
	r.byExt[NoneExt] = Filetype{
		Ext:          NoneExt,
		Generic:      true,
		Mimetype:     "application/octet-stream",
		IconFilename: "unknown.svg",
		Color:        "#9e9e9e",
	}
}

// Load populates the registry from seed data. A load failure leaves the
// registry with only the .none fallback and is logged, not returned, per
// spec.md §4.2.
func (r *Registry) Load(seeds []Seed) {
	if err := r.load(seeds); err != nil {
		log.Warn().Err(err).Msg("filetype registry load failed, falling back to .none for every file")
	}
}

// ReloadFromSeed re-populates the registry without a process restart
// (the "explicit force-reload" spec.md §4.2 allows), grounded on the
// original system's admin refresh-filetypes command.
func (r *Registry) ReloadFromSeed(seeds []Seed) error {
	return r.load(seeds)
}

func (r *Registry) load(seeds []Seed) error {
	byExt := make(map[string]Filetype, len(seeds)+1)

	for _, s := range seeds {
		ext := normalizeExt(s.Ext)
		if ext == "" {
			continue
		}
		byExt[ext] = Filetype{
			Ext:          ext,
			IsImage:      s.Kind == "image",
			IsPDF:        s.Kind == "pdf",
			IsMovie:      s.Kind == "movie",
			IsArchive:    s.Kind == "archive",
			IsDir:        s.Kind == "dir",
			IsText:       s.Kind == "text",
			IsMarkdown:   s.Kind == "markdown",
			IsHTML:       s.Kind == "html",
			IsLink:       s.Kind == "link",
			Generic:      s.Kind == "",
			Mimetype:     s.Mimetype,
			IconFilename: s.IconFilename,
			Color:        s.Color,
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt = byExt
	r.installNoneFallback()
	r.loadErr = nil
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return stringutils.InternNormalized(ext)
}

// resolveExt applies spec.md §4.2's fallback rule: empty, missing, or the
// literal "unknown" all resolve as .none.
func resolveExt(ext string) string {
	normalized := normalizeExt(ext)
	if normalized == "" || normalized == ".unknown" {
		return NoneExt
	}
	return normalized
}

// ExistsByExt reports whether ext resolves to a registry entry. Empty,
// missing and "unknown" extensions resolve to .none, so they report true.
func (r *Registry) ExistsByExt(ext string) bool {
	key := resolveExt(ext)
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byExt[key]
	return ok
}

// GetByExt returns the Filetype for ext, falling back to .none.
func (r *Registry) GetByExt(ext string) Filetype {
	key := resolveExt(ext)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ft, ok := r.byExt[key]; ok {
		return ft
	}
	return r.byExt[NoneExt]
}
