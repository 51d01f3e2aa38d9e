// Package layout implements C6: turning a directory's synced index rows
// into an ordered, paginated page with navigation context, memoized in an
// in-memory cache that the invalidator purges by directory SHA.
package layout

import "time"

// Kind distinguishes a directory entry from a file entry in a combined
// listing (spec.md §4.3.4, "directories first, then ... files").
type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Entry is one row of a page (spec.md §4.6, "entries[]").
type Entry struct {
	Name         string    `json:"name"`
	Kind         Kind      `json:"kind"`
	RelPath      string    `json:"rel_path"` // slash-separated path under the managed root
	ThumbnailURL string    `json:"thumbnail_url,omitempty"` // empty for directories with no cover and non-previewable kinds
	FiletypeExt  string    `json:"filetype_ext,omitempty"`
	IsImage      bool      `json:"is_image,omitempty"`
	IsPDF        bool      `json:"is_pdf,omitempty"`
	IsMovie      bool      `json:"is_movie,omitempty"`
	IsArchive    bool      `json:"is_archive,omitempty"`
	IconFilename string    `json:"icon_filename,omitempty"`
	Color        string    `json:"color,omitempty"`
	Size         int64     `json:"size"`
	Mtime        time.Time `json:"mtime"`
}

// Pagination carries the navigation context for the page itself.
type Pagination struct {
	TotalItems  int    `json:"total_items"`
	PageSize    int    `json:"page_size"`
	PageCount   int    `json:"page_count"`
	CurrentPage int    `json:"current_page"`
	PrevURL     string `json:"prev_url,omitempty"`
	NextURL     string `json:"next_url,omitempty"`
}

// SiblingRef names a neighboring directory under the same parent.
type SiblingRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Siblings carries prev/next sibling-directory navigation (spec.md §4.6).
type Siblings struct {
	Prev *SiblingRef `json:"prev,omitempty"`
	Next *SiblingRef `json:"next,omitempty"`
}

// Breadcrumb is one link in the root-to-current ancestry chain.
type Breadcrumb struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Page is the complete prepared payload for one (path, sort, page,
// show_duplicates) request, the value half of a Layout-Cache entry.
type Page struct {
	Entries     []Entry      `json:"entries"`
	Pagination  Pagination   `json:"pagination"`
	Siblings    Siblings     `json:"siblings"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
}
