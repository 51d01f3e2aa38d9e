// Package index implements C3: the persistent directory/file index and the
// on-demand synchronization engine that reconciles it with the filesystem.
package index

import "time"

// Directory mirrors one row of the directories table (spec.md §4.1).
type Directory struct {
	DirSHA256       string
	FQPN            string
	ParentDirSHA256 string // empty for the managed root
	CombinedSHA256  string
	CountFiles      int
	CountSubdirs    int
	DeletePending   bool
	LastSyncTime    time.Time
}

// File mirrors one row of the files table (spec.md §4.1).
type File struct {
	UniqueSHA256  string
	HomeDirectory string // dir_sha256 of the owning Directory
	Name          string // title-cased display form, as stored
	DiskName      string // literal on-disk filename; the only form safe for os.Open
	FileSHA256    string
	FiletypeExt   string
	Size          int64
	Mtime         time.Time
	DeletePending bool
}

// CacheTrackingEntry mirrors one row of the cache_tracking table (spec.md §4.1).
type CacheTrackingEntry struct {
	DirSHA256   string
	Invalidated bool
	LastScan    time.Time
}

// SortOrder selects one of the three orderings C3 exposes (spec.md §4.3.4).
type SortOrder int

const (
	SortNaturalName SortOrder = iota
	SortLastModified
	SortNameOnly
)
