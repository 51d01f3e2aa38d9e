package index

import (
	"context"
	"database/sql"
	"os"
	"sort"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/dbinterface"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/galleryerr"
	"github.com/galleryhost/gallery/internal/identity"
	"github.com/galleryhost/gallery/internal/metrics"
)

// Syncer implements C3's public operations and the sync algorithm of
// spec.md §4.3.2. Concurrent syncs of the same directory coalesce onto one
// in-flight call via singleflight, matching the teacher's
// automations.hardlinkIndexCache/transfer.categoryCreationGroup shape.
type Syncer struct {
	db         dbinterface.TxBeginner
	normalizer *identity.Normalizer
	filetypes  *filetype.Registry
	cfg        *config.Config
	collector  *metrics.GalleryCollector

	syncGroup singleflight.Group

	// onDirectoryValidated is called after a successful sync (step 11),
	// so C6 can purge any Layout-Cache entry keyed by the directory's SHA.
	// A nil hook (the default) means no Layout Cache is wired yet.
	onDirectoryValidated func(dirSHA256 string)
}

// NewSyncer builds a Syncer bound to a transactional database handle.
func NewSyncer(db dbinterface.TxBeginner, normalizer *identity.Normalizer, filetypes *filetype.Registry, cfg *config.Config, collector *metrics.GalleryCollector) *Syncer {
	return &Syncer{
		db:         db,
		normalizer: normalizer,
		filetypes:  filetypes,
		cfg:        cfg,
		collector:  collector,
	}
}

// OnDirectoryValidated registers the Layout-Cache purge hook (spec.md
// §4.3.2 step 11).
func (s *Syncer) OnDirectoryValidated(fn func(dirSHA256 string)) {
	s.onDirectoryValidated = fn
}

// SearchForDirectory normalizes path via C1 and looks it up by dir_sha256,
// with no filesystem I/O (spec.md §4.3.1).
func (s *Syncer) SearchForDirectory(ctx context.Context, path string) (*Directory, bool, error) {
	_, sha := s.normalizer.CanonicalizeAndHash(path)
	return NewStore(s.db).GetDirectory(ctx, sha)
}

// DirectoryBySHA is a primary access path from external URLs.
func (s *Syncer) DirectoryBySHA(ctx context.Context, dirSHA256 string) (*Directory, bool, error) {
	return NewStore(s.db).GetDirectory(ctx, dirSHA256)
}

// FileByUniqueSHA is a primary access path from external URLs.
func (s *Syncer) FileByUniqueSHA(ctx context.Context, uniqueSHA256 string) (*File, bool, error) {
	return NewStore(s.db).FileByUniqueSHA(ctx, uniqueSHA256)
}

// MarkInvalid sets the Cache-Tracking flag for path; no sync is performed
// here (spec.md §4.3.1, §4.5.4 — sync happens lazily on next access).
func (s *Syncer) MarkInvalid(ctx context.Context, path string) error {
	_, sha := s.normalizer.CanonicalizeAndHash(path)
	return NewStore(s.db).MarkInvalidated(ctx, sha)
}

// ListDirectory ensures path is synced, then returns subdirectories and
// files ordered per sortOrder, with content-duplicate files suppressed
// unless showDuplicates is set (spec.md §4.3.1, grouping delegated to C6).
func (s *Syncer) ListDirectory(ctx context.Context, path string, sortOrder SortOrder, showDuplicates bool) (files []File, subdirs []Directory, err error) {
	if err := s.Sync(ctx, path); err != nil {
		return nil, nil, err
	}

	_, dirSHA := s.normalizer.CanonicalizeAndHash(path)
	store := NewStore(s.db)

	files, err = store.ListFiles(ctx, dirSHA)
	if err != nil {
		return nil, nil, err
	}
	subdirs, err = store.ListSubdirectories(ctx, dirSHA)
	if err != nil {
		return nil, nil, err
	}

	if !showDuplicates {
		files = suppressDuplicateContent(files)
	}

	SortFiles(files, sortOrder)
	SortDirectories(subdirs, sortOrder)
	return files, subdirs, nil
}

// suppressDuplicateContent keeps, for each distinct file_sha256, only the
// lexicographically-first unique_sha256 — a stable, deterministic choice
// of "the" representative among content duplicates.
func suppressDuplicateContent(files []File) []File {
	bestByContent := make(map[string]File, len(files))
	for _, f := range files {
		cur, ok := bestByContent[f.FileSHA256]
		if !ok || f.UniqueSHA256 < cur.UniqueSHA256 {
			bestByContent[f.FileSHA256] = f
		}
	}
	out := make([]File, 0, len(bestByContent))
	for _, f := range bestByContent {
		out = append(out, f)
	}
	return out
}

// Sync forces a (possibly short-circuited) reconciliation pass on path,
// coalescing concurrent callers for the same directory (spec.md §4.3.3).
func (s *Syncer) Sync(ctx context.Context, path string) error {
	canonical, dirSHA := s.normalizer.CanonicalizeAndHash(path)

	_, err, _ := s.syncGroup.Do(dirSHA, func() (any, error) {
		return nil, s.syncDirectory(ctx, canonical, dirSHA)
	})
	return err
}

func (s *Syncer) syncDirectory(ctx context.Context, canonicalPath, dirSHA string) error {
	start := time.Now()

	info, statErr := os.Stat(canonicalPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			_ = NewStore(s.db).SetDirectoryDeletePending(ctx, dirSHA, true)
			return galleryerr.NotFound("sync", statErr)
		}
		if os.IsPermission(statErr) {
			s.recordFailure()
			return galleryerr.AccessDenied("sync", statErr)
		}
		s.recordFailure()
		return galleryerr.Transient("sync", statErr)
	}

	// Step 1: short-circuit if the tracking entry is fresh and disk mtime
	// has not advanced past the last scan.
	tracking, found, err := NewStore(s.db).GetCacheTracking(ctx, dirSHA)
	if err != nil {
		return err
	}
	if found && !tracking.Invalidated && s.isFresh(tracking.LastScan, info.ModTime()) {
		if s.collector != nil {
			s.collector.RecordSyncShortCircuit()
		}
		return nil
	}

	// Step 2: scan outside the transaction.
	scanned, err := scanOne(s.cfg, canonicalPath)
	if err != nil {
		if os.IsPermission(err) {
			s.recordFailure()
			return galleryerr.AccessDenied("sync", err)
		}
		s.recordFailure()
		return galleryerr.Transient("sync", err)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		s.recordFailure()
		return galleryerr.Transient("sync", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	store := NewStore(tx)

	// Ensure P's own row exists before reconciling children: subdirectory
	// rows carry a foreign key to their parent, and this may be the first
	// sync this directory has ever had.
	if _, existed, err := store.GetDirectory(ctx, dirSHA); err != nil {
		return galleryerr.Transient("sync", err)
	} else if !existed {
		if err := store.UpsertDirectory(ctx, &Directory{
			DirSHA256: dirSHA,
			FQPN:      canonicalPath,
		}); err != nil {
			return err
		}
	}

	if err := s.reconcileFiles(ctx, store, dirSHA, scanned.Files); err != nil {
		return err
	}
	countSubdirs, err := s.reconcileSubdirectories(ctx, store, dirSHA, scanned.Dirs)
	if err != nil {
		return err
	}

	// Step 9: recompute directory stats.
	liveFiles, err := store.ListFiles(ctx, dirSHA)
	if err != nil {
		return galleryerr.Transient("sync", err)
	}
	combined := combinedSHAOf(liveFiles)

	dir, existed, err := store.GetDirectory(ctx, dirSHA)
	if err != nil {
		return galleryerr.Transient("sync", err)
	}
	if !existed {
		dir = &Directory{DirSHA256: dirSHA}
	}
	dir.FQPN = canonicalPath
	dir.CombinedSHA256 = combined
	dir.CountFiles = len(liveFiles)
	dir.CountSubdirs = countSubdirs
	dir.DeletePending = false
	dir.LastSyncTime = time.Now()
	if err := store.UpsertDirectory(ctx, dir); err != nil {
		return err
	}

	// Step 10: flip the tracking entry.
	if err := store.UpsertCacheTracking(ctx, &CacheTrackingEntry{
		DirSHA256:   dirSHA,
		Invalidated: false,
		LastScan:    time.Now(),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.recordFailure()
		return galleryerr.Transient("sync", err)
	}
	committed = true

	// Step 11: notify the Layout Cache.
	if s.onDirectoryValidated != nil {
		s.onDirectoryValidated(dirSHA)
	}

	if s.collector != nil {
		s.collector.RecordSyncFull(time.Since(start))
	}
	return nil
}

func (s *Syncer) recordFailure() {
	if s.collector != nil {
		s.collector.RecordSyncFailure()
	}
}

// isFresh implements the sync_freshness_window_seconds rule (spec.md §6):
// 0 (the default) always re-stats; otherwise a lastscan within the window
// is trusted without comparing disk mtime at all.
func (s *Syncer) isFresh(lastScan, diskMtime time.Time) bool {
	window := s.cfg.SyncFreshnessWindowSeconds
	if window > 0 && time.Since(lastScan) < time.Duration(window)*time.Second {
		return true
	}
	return !diskMtime.After(lastScan)
}

// reconcileFiles implements steps 3-7 of the sync algorithm: the
// case-insensitive matching pass between on-disk files and index rows.
func (s *Syncer) reconcileFiles(ctx context.Context, store *Store, dirSHA string, disk []scannedFile) error {
	existing, err := store.ListAllFilesIncludingDeletePending(ctx, dirSHA)
	if err != nil {
		return galleryerr.Transient("sync.reconcileFiles", err)
	}

	byLowerName := make(map[string]File, len(existing))
	for _, f := range existing {
		byLowerName[lowerFold(f.Name)] = f
	}

	onDisk := make(map[string]struct{}, len(disk))
	for _, sf := range disk {
		key := lowerFold(sf.Name)
		onDisk[key] = struct{}{}

		row, matched := byLowerName[key]
		if !matched {
			// Step 6: create.
			if err := s.createFile(ctx, store, dirSHA, sf); err != nil {
				log.Warn().Err(err).Str("path", sf.FullPath).Msg("sync: skipping file that failed to hash")
				continue
			}
			continue
		}

		// Step 5: update in place, preserving identity across a pure
		// case-rename (spec.md §4.3.2 step 5 and §8 boundary case).
		resurrected := row.DeletePending
		row.DeletePending = false

		if row.Mtime.Equal(sf.Mtime) && row.Size == sf.Size {
			switch {
			case resurrected:
				row.Name = sf.Name
				row.DiskName = sf.DiskName
				if err := store.UpsertFile(ctx, &row); err != nil {
					return err
				}
			case row.Name != sf.Name || row.DiskName != sf.DiskName:
				if err := store.RenameFile(ctx, row.UniqueSHA256, sf.Name, sf.DiskName); err != nil {
					return err
				}
			}
			continue
		}

		fileSHA, uniqueSHA, err := identity.FileSHAs(sf.FullPath, sf.FullPath)
		if err != nil {
			log.Warn().Err(err).Str("path", sf.FullPath).Msg("sync: skipping file that failed to re-hash")
			continue
		}
		if fileSHA == row.FileSHA256 && uniqueSHA == row.UniqueSHA256 {
			row.Mtime = sf.Mtime
			row.Size = sf.Size
			row.Name = sf.Name
			row.DiskName = sf.DiskName
			if err := store.UpsertFile(ctx, &row); err != nil {
				return err
			}
			continue
		}

		// Content changed: the old row's thumbnail reference is orphaned
		// by virtue of being keyed on the old file_sha256; nothing further
		// to do here beyond writing the new identity.
		if err := store.SetFileDeletePending(ctx, row.UniqueSHA256, true); err != nil {
			return err
		}
		ext := s.extOf(sf.Name)
		if err := store.UpsertFile(ctx, &File{
			UniqueSHA256:  uniqueSHA,
			HomeDirectory: dirSHA,
			Name:          sf.Name,
			DiskName:      sf.DiskName,
			FileSHA256:    fileSHA,
			FiletypeExt:   ext,
			Size:          sf.Size,
			Mtime:         sf.Mtime,
			DeletePending: false,
		}); err != nil {
			return err
		}
	}

	// Step 7: index rows absent from disk become delete-pending.
	for key, row := range byLowerName {
		if _, present := onDisk[key]; !present && !row.DeletePending {
			if err := store.SetFileDeletePending(ctx, row.UniqueSHA256, true); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Syncer) createFile(ctx context.Context, store *Store, dirSHA string, sf scannedFile) error {
	fileSHA, uniqueSHA, err := identity.FileSHAs(sf.FullPath, sf.FullPath)
	if err != nil {
		return err
	}
	ext := s.extOf(sf.Name)
	return store.UpsertFile(ctx, &File{
		UniqueSHA256:  uniqueSHA,
		HomeDirectory: dirSHA,
		Name:          sf.Name,
		DiskName:      sf.DiskName,
		FileSHA256:    fileSHA,
		FiletypeExt:   ext,
		Size:          sf.Size,
		Mtime:         sf.Mtime,
		DeletePending: false,
	})
}

func (s *Syncer) extOf(name string) string {
	ext := extOfName(name)
	if s.filetypes != nil && !s.filetypes.ExistsByExt(ext) {
		return filetype.NoneExt
	}
	return ext
}

// reconcileSubdirectories implements step 8: subdirectories are matched,
// created, or marked delete-pending, but never recursively synced.
func (s *Syncer) reconcileSubdirectories(ctx context.Context, store *Store, parentSHA string, disk []scannedDir) (int, error) {
	existing, err := store.ListSubdirectories(ctx, parentSHA)
	if err != nil {
		return 0, galleryerr.Transient("sync.reconcileSubdirectories", err)
	}

	existingBySHA := make(map[string]Directory, len(existing))
	for _, d := range existing {
		existingBySHA[d.DirSHA256] = d
	}

	seen := make(map[string]struct{}, len(disk))
	for _, sd := range disk {
		canonical, sha := s.normalizer.CanonicalizeAndHash(sd.FullPath)
		seen[sha] = struct{}{}
		if _, ok := existingBySHA[sha]; ok {
			continue
		}
		if err := store.UpsertDirectory(ctx, &Directory{
			DirSHA256:       sha,
			FQPN:            canonical,
			ParentDirSHA256: parentSHA,
			DeletePending:   false,
		}); err != nil {
			return 0, err
		}
	}

	for sha, d := range existingBySHA {
		if _, present := seen[sha]; !present && !d.DeletePending {
			if err := store.SetDirectoryDeletePending(ctx, sha, true); err != nil {
				return 0, err
			}
		}
	}

	return len(seen), nil
}

func combinedSHAOf(files []File) string {
	shas := make([]string, 0, len(files))
	for _, f := range files {
		if !f.DeletePending {
			shas = append(shas, f.FileSHA256)
		}
	}
	sort.Strings(shas)
	return identity.CombinedSHA256(shas)
}

func lowerFold(name string) string {
	return toLowerASCIIUnicode(name)
}

func toLowerASCIIUnicode(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return string(runes)
}

func extOfName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return toLowerASCII(name[i:])
		}
		if name[i] == '/' || name[i] == '\\' {
			break
		}
	}
	return filetype.NoneExt
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
