package layout

import (
	"context"
	"fmt"
	"path"
	gosort "sort"
	"strings"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/dbinterface"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/identity"
	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/internal/thumbnail"
)

// thumbnailListSize is the size slot used for grid-listing previews; the
// small slot is the one every entry needs regardless of which size a
// client eventually opens at full resolution.
const thumbnailListSize = "small"

// Engine implements C6's contract: given a directory path plus sort,
// page, and duplicate-visibility, produce a fully navigable Page
// (spec.md §4.6). It calls C3 to ensure the directory is synced and C4 to
// resolve directory covers, matching the data flow of spec.md §2.
type Engine struct {
	db            dbinterface.Querier
	syncer        *index.Syncer
	registry      *filetype.Registry
	cfg           *config.Config
	canonicalRoot string
	cache         *Cache
}

// NewEngine builds an Engine. Register its Invalidate method as the
// index.Syncer.OnDirectoryValidated hook and its InvalidatePath method as
// the invalidator's onInvalidated hook to wire up the Layout-Cache purge
// of spec.md §4.3.2 step 11.
func NewEngine(db dbinterface.Querier, syncer *index.Syncer, registry *filetype.Registry, cfg *config.Config) *Engine {
	e := &Engine{
		db:            db,
		syncer:        syncer,
		registry:      registry,
		cfg:           cfg,
		canonicalRoot: identity.CanonicalDir(cfg.ManagedRoot),
	}
	e.cache = NewCache(layoutCacheTTL, e.computePage)
	return e
}

// Invalidate purges every Layout-Cache entry for dirSHA256. It binds
// directly to index.Syncer.OnDirectoryValidated, which fires with a
// dir_sha256; hooks that only have a filesystem path use InvalidatePath.
func (e *Engine) Invalidate(dirSHA256 string) {
	e.cache.PurgeDirectory(dirSHA256)
}

// InvalidatePath is the adapter for hooks that only have a filesystem
// path (the invalidator's onInvalidated callback), not a dir_sha256.
func (e *Engine) InvalidatePath(p string) {
	e.Invalidate(identity.DirSHA256(identity.CanonicalDir(p)))
}

// Page returns the prepared page for dirPath, computing it on a
// Layout-Cache miss.
func (e *Engine) Page(ctx context.Context, dirPath string, sort index.SortOrder, pageNum int, showDuplicates bool) (Page, error) {
	if pageNum < 1 {
		pageNum = 1
	}

	// Sync happens unconditionally (cheap short-circuit per spec.md
	// §4.3.2 step 1) so a Layout-Cache hit never masks a directory that
	// no longer exists; ensureSynced also resolves dirSHA256 for the key.
	dirSHA256, err := e.ensureSynced(ctx, dirPath)
	if err != nil {
		return Page{}, err
	}

	key := CacheKey{DirSHA256: dirSHA256, Sort: sort, Page: pageNum, ShowDuplicates: showDuplicates}
	return e.cache.Get(key), nil
}

// ensureSynced syncs dirPath and every ancestor between it and the
// managed root, root-to-leaf. Syncing only dirPath itself would leave
// ParentDirSHA256 empty on a directory visited for the first time via a
// deep link, since that field is only populated when the *parent's* own
// sync discovers the child as a subdirectory (spec.md §4.3.2 step 8) —
// breadcrumbs need the full chain regardless of which directory a caller
// happens to land on first.
func (e *Engine) ensureSynced(ctx context.Context, dirPath string) (string, error) {
	canonical := identity.CanonicalDir(dirPath)
	for _, ancestor := range ancestorChain(e.canonicalRoot, canonical) {
		if err := e.syncer.Sync(ctx, ancestor); err != nil {
			return "", err
		}
	}
	return identity.DirSHA256(canonical), nil
}

// ancestorChain returns canonicalRoot followed by each directory level
// down to target, inclusive, in root-to-leaf order.
func ancestorChain(canonicalRoot, target string) []string {
	root := strings.TrimRight(canonicalRoot, "/")
	t := strings.TrimRight(target, "/")
	if t == root || !strings.HasPrefix(t, root+"/") {
		return []string{target}
	}

	rel := strings.TrimPrefix(t, root+"/")
	segments := strings.Split(rel, "/")
	chain := make([]string, 0, len(segments)+1)
	current := root
	chain = append(chain, current)
	for _, seg := range segments {
		current += "/" + seg
		chain = append(chain, current)
	}
	return chain
}

// computePage is the Layout-Cache's transform function, run on a cache
// miss under no lock of our own. The underlying Normalizer does not
// coordinate concurrent misses, so callers that miss the same key at the
// same time each compute the page.
func (e *Engine) computePage(key CacheKey) Page {
	ctx := context.Background()
	store := index.NewStore(e.db)

	dir, ok, err := store.GetDirectory(ctx, key.DirSHA256)
	if err != nil || !ok {
		return Page{}
	}

	files, subdirs, err := e.syncer.ListDirectory(ctx, dir.FQPN, key.Sort, true)
	if err != nil {
		return Page{}
	}
	if !key.ShowDuplicates {
		files = e.filterTreeDuplicates(ctx, store, files)
	}

	combined := e.combineEntries(ctx, store, dir, files, subdirs, key.Sort)

	pageSize := e.cfg.GalleryPageSize
	if pageSize <= 0 {
		pageSize = 30
	}
	pageEntries, pagination := paginate(combined, key.Page, pageSize)

	siblings := e.siblings(ctx, store, dir, key.Sort)
	breadcrumbs := e.breadcrumbs(ctx, store, dir)

	return Page{
		Entries:     pageEntries,
		Pagination:  pagination,
		Siblings:    siblings,
		Breadcrumbs: breadcrumbs,
	}
}

// filterTreeDuplicates implements spec.md §4.6's "duplicate filtering":
// unlike index.Syncer.ListDirectory's own showDuplicates handling (which
// only dedups within one directory's listing), here a file is hidden if
// any other File row anywhere in the tree shares its file_sha256 and sorts
// before it in natural order over the full path.
func (e *Engine) filterTreeDuplicates(ctx context.Context, store *index.Store, files []index.File) []index.File {
	out := make([]index.File, 0, len(files))
	for _, f := range files {
		canonical, err := e.isCanonicalCopy(ctx, store, f)
		if err != nil || canonical {
			out = append(out, f)
		}
	}
	return out
}

func (e *Engine) isCanonicalCopy(ctx context.Context, store *index.Store, f index.File) (bool, error) {
	dups, err := store.FilesSharingContent(ctx, f.FileSHA256)
	if err != nil {
		return true, err
	}
	if len(dups) <= 1 {
		return true, nil
	}

	selfPath, err := e.fullPath(ctx, store, f)
	if err != nil {
		return true, err
	}
	best := selfPath
	for _, d := range dups {
		if d.UniqueSHA256 == f.UniqueSHA256 {
			continue
		}
		p, err := e.fullPath(ctx, store, d)
		if err != nil {
			continue
		}
		if index.NaturalLess(p, best) {
			best = p
		}
	}
	return best == selfPath, nil
}

func (e *Engine) fullPath(ctx context.Context, store *index.Store, f index.File) (string, error) {
	dir, ok, err := store.GetDirectory(ctx, f.HomeDirectory)
	if err != nil {
		return "", err
	}
	if !ok {
		return f.Name, nil
	}
	return path.Join(dir.FQPN, f.Name), nil
}

// combineEntries merges subdirectories and files per spec.md §4.3.4:
// orders 0 and 1 group directories first, then link files (the registry's
// link kind), then all other files; order 2 merges every kind into one
// flat natural-name run. index.SortFiles/SortDirectories already sorted
// each slice internally, so only the cross-kind grouping is done here.
func (e *Engine) combineEntries(ctx context.Context, store *index.Store, parent *index.Directory, files []index.File, subdirs []index.Directory, sort index.SortOrder) []Entry {
	dirEntries := make([]Entry, len(subdirs))
	for i, d := range subdirs {
		dirEntries[i] = e.directoryEntry(ctx, store, d)
	}
	fileEntries := make([]Entry, len(files))
	for i, f := range files {
		fileEntries[i] = e.fileEntry(parent, f)
	}

	if sort != index.SortNameOnly {
		out := append([]Entry{}, dirEntries...)
		var others []Entry
		for i, f := range files {
			if e.registry.GetByExt(f.FiletypeExt).IsLink {
				out = append(out, fileEntries[i])
			} else {
				others = append(others, fileEntries[i])
			}
		}
		return append(out, others...)
	}

	combined := append(append([]Entry{}, dirEntries...), fileEntries...)
	gosort.SliceStable(combined, func(i, j int) bool {
		return index.NaturalLess(combined[i].Name, combined[j].Name)
	})
	return combined
}

func (e *Engine) directoryEntry(ctx context.Context, store *index.Store, d index.Directory) Entry {
	name := path.Base(strings.TrimSuffix(d.FQPN, "/"))
	entry := Entry{
		Name:    name,
		Kind:    KindDirectory,
		RelPath: relPath(e.canonicalRoot, d.FQPN),
	}

	cover, err := thumbnail.SelectDirectoryCover(ctx, store, e.registry, e.cfg.CoverNames, d.DirSHA256)
	if err == nil {
		if cover.FileSHA256 != "" {
			entry.ThumbnailURL = thumbnailURL(cover.FileSHA256)
		} else {
			ft := e.registry.GetByExt(".dir")
			entry.IconFilename = ft.IconFilename
			entry.Color = ft.Color
		}
	}
	return entry
}

func (e *Engine) fileEntry(parent *index.Directory, f index.File) Entry {
	ft := e.registry.GetByExt(f.FiletypeExt)
	entry := Entry{
		Name:         f.Name,
		Kind:         KindFile,
		RelPath:      relPath(e.canonicalRoot, parent.FQPN) + f.Name,
		FiletypeExt:  f.FiletypeExt,
		IsImage:      ft.IsImage,
		IsPDF:        ft.IsPDF,
		IsMovie:      ft.IsMovie,
		IsArchive:    ft.IsArchive,
		IconFilename: ft.IconFilename,
		Color:        ft.Color,
		Size:         f.Size,
		Mtime:        f.Mtime,
	}
	if ft.IsImage || ft.IsPDF || ft.IsMovie || ft.IsArchive {
		entry.ThumbnailURL = thumbnailURL(f.FileSHA256)
	}
	return entry
}

func thumbnailURL(fileSHA256 string) string {
	return fmt.Sprintf("/thumbnail/%s/%s", fileSHA256, thumbnailListSize)
}

func relPath(managedRoot, dirFQPN string) string {
	if dirFQPN == "" {
		return ""
	}
	rel := strings.TrimPrefix(dirFQPN, managedRoot)
	rel = strings.TrimPrefix(rel, "/")
	if rel != "" && !strings.HasSuffix(rel, "/") {
		rel += "/"
	}
	return "/" + rel
}

func paginate(entries []Entry, pageNum, pageSize int) ([]Entry, Pagination) {
	total := len(entries)
	pageCount := (total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}
	if pageNum > pageCount {
		pageNum = pageCount
	}

	start := (pageNum - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	pagination := Pagination{
		TotalItems:  total,
		PageSize:    pageSize,
		PageCount:   pageCount,
		CurrentPage: pageNum,
	}
	if pageNum > 1 {
		pagination.PrevURL = fmt.Sprintf("?page=%d", pageNum-1)
	}
	if pageNum < pageCount {
		pagination.NextURL = fmt.Sprintf("?page=%d", pageNum+1)
	}

	return entries[start:end], pagination
}

// siblings finds the prev/next directory under the same parent, in the
// same sort order applied to the parent's own listing (spec.md §4.6).
func (e *Engine) siblings(ctx context.Context, store *index.Store, dir *index.Directory, sort index.SortOrder) Siblings {
	if dir.ParentDirSHA256 == "" {
		return Siblings{}
	}
	parentSubdirs, err := store.ListSubdirectories(ctx, dir.ParentDirSHA256)
	if err != nil {
		return Siblings{}
	}
	index.SortDirectories(parentSubdirs, sort)

	pos := -1
	for i, d := range parentSubdirs {
		if d.DirSHA256 == dir.DirSHA256 {
			pos = i
			break
		}
	}
	if pos == -1 {
		return Siblings{}
	}

	var out Siblings
	if pos > 0 {
		out.Prev = siblingRef(parentSubdirs[pos-1], e.canonicalRoot)
	}
	if pos < len(parentSubdirs)-1 {
		out.Next = siblingRef(parentSubdirs[pos+1], e.canonicalRoot)
	}
	return out
}

func siblingRef(d index.Directory, managedRoot string) *SiblingRef {
	return &SiblingRef{
		Name: path.Base(strings.TrimSuffix(d.FQPN, "/")),
		URL:  relPath(managedRoot, d.FQPN),
	}
}

// breadcrumbs walks the parent chain from dir up to the managed root,
// then reverses it into root-to-current order (spec.md §4.6).
func (e *Engine) breadcrumbs(ctx context.Context, store *index.Store, dir *index.Directory) []Breadcrumb {
	var chain []Breadcrumb
	current := dir
	for current != nil {
		chain = append(chain, Breadcrumb{
			Label: path.Base(strings.TrimSuffix(current.FQPN, "/")),
			URL:   relPath(e.canonicalRoot, current.FQPN),
		})
		if current.ParentDirSHA256 == "" {
			break
		}
		parent, ok, err := store.GetDirectory(ctx, current.ParentDirSHA256)
		if err != nil || !ok {
			break
		}
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
