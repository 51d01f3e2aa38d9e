package index

import (
	"context"
	"database/sql"
	"time"

	"github.com/galleryhost/gallery/internal/dbinterface"
	"github.com/galleryhost/gallery/internal/galleryerr"
)

// Store is the repository over the directories/files/cache_tracking tables.
// It accepts any dbinterface.Querier, so callers can run it against the
// database's pooled connection or against a transaction interchangeably,
// matching the teacher's filesmanager.Repository shape.
type Store struct {
	db dbinterface.Querier
}

// NewStore builds a Store bound to q (a *database.DB, a dbinterface.TxQuerier,
// or any other Querier implementation).
func NewStore(q dbinterface.Querier) *Store {
	return &Store{db: q}
}

// WithQuerier returns a Store bound to a different Querier, typically an
// open transaction, without duplicating the repository's method set.
func (s *Store) WithQuerier(q dbinterface.Querier) *Store {
	return &Store{db: q}
}

// GetDirectory looks up a Directory by its dir_sha256, C1's content identity.
func (s *Store) GetDirectory(ctx context.Context, dirSHA256 string) (*Directory, bool, error) {
	const q = `
		SELECT dir_sha256, fqpn, parent_dir_sha256, combined_sha256,
		       count_files, count_subdirs, delete_pending, last_sync_time
		FROM directories WHERE dir_sha256 = ?
	`
	var d Directory
	var parent sql.NullString
	var lastSync int64
	err := s.db.QueryRowContext(ctx, q, dirSHA256).Scan(
		&d.DirSHA256, &d.FQPN, &parent, &d.CombinedSHA256,
		&d.CountFiles, &d.CountSubdirs, &d.DeletePending, &lastSync,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, galleryerr.Transient("index.GetDirectory", err)
	}
	d.ParentDirSHA256 = parent.String
	d.LastSyncTime = time.Unix(lastSync, 0).UTC()
	return &d, true, nil
}

// UpsertDirectory inserts P or updates its mutable fields when it already exists.
func (s *Store) UpsertDirectory(ctx context.Context, d *Directory) error {
	const q = `
		INSERT INTO directories
			(dir_sha256, fqpn, parent_dir_sha256, combined_sha256,
			 count_files, count_subdirs, delete_pending, last_sync_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dir_sha256) DO UPDATE SET
			fqpn = excluded.fqpn,
			parent_dir_sha256 = excluded.parent_dir_sha256,
			combined_sha256 = excluded.combined_sha256,
			count_files = excluded.count_files,
			count_subdirs = excluded.count_subdirs,
			delete_pending = excluded.delete_pending,
			last_sync_time = excluded.last_sync_time
	`
	var parent any
	if d.ParentDirSHA256 != "" {
		parent = d.ParentDirSHA256
	}
	_, err := s.db.ExecContext(ctx, q,
		d.DirSHA256, d.FQPN, parent, d.CombinedSHA256,
		d.CountFiles, d.CountSubdirs, d.DeletePending, d.LastSyncTime.Unix(),
	)
	if err != nil {
		return galleryerr.Transient("index.UpsertDirectory", err)
	}
	return nil
}

// SetDirectoryDeletePending flips delete_pending on a Directory row that
// already exists; a no-op if it does not (spec.md §4.3.5, "not found" case).
func (s *Store) SetDirectoryDeletePending(ctx context.Context, dirSHA256 string, pending bool) error {
	const q = `UPDATE directories SET delete_pending = ? WHERE dir_sha256 = ?`
	_, err := s.db.ExecContext(ctx, q, pending, dirSHA256)
	if err != nil {
		return galleryerr.Transient("index.SetDirectoryDeletePending", err)
	}
	return nil
}

// ListSubdirectories returns the non-delete-pending children of a directory.
func (s *Store) ListSubdirectories(ctx context.Context, parentDirSHA256 string) ([]Directory, error) {
	const q = `
		SELECT dir_sha256, fqpn, parent_dir_sha256, combined_sha256,
		       count_files, count_subdirs, delete_pending, last_sync_time
		FROM directories WHERE parent_dir_sha256 = ? AND delete_pending = 0
	`
	rows, err := s.db.QueryContext(ctx, q, parentDirSHA256)
	if err != nil {
		return nil, galleryerr.Transient("index.ListSubdirectories", err)
	}
	defer rows.Close()

	var out []Directory
	for rows.Next() {
		var d Directory
		var parent sql.NullString
		var lastSync int64
		if err := rows.Scan(&d.DirSHA256, &d.FQPN, &parent, &d.CombinedSHA256,
			&d.CountFiles, &d.CountSubdirs, &d.DeletePending, &lastSync); err != nil {
			return nil, galleryerr.Transient("index.ListSubdirectories", err)
		}
		d.ParentDirSHA256 = parent.String
		d.LastSyncTime = time.Unix(lastSync, 0).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListFiles returns every non-delete-pending File row owned by a directory.
func (s *Store) ListFiles(ctx context.Context, homeDirectorySHA256 string) ([]File, error) {
	const q = `
		SELECT unique_sha256, home_directory, name, disk_name, file_sha256,
		       filetype_ext, size, mtime, delete_pending
		FROM files WHERE home_directory = ? AND delete_pending = 0
	`
	rows, err := s.db.QueryContext(ctx, q, homeDirectorySHA256)
	if err != nil {
		return nil, galleryerr.Transient("index.ListFiles", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// ListAllFilesIncludingDeletePending backs the matching pass (spec.md
// §4.3.2 step 3), which must see rows that are still delete_pending so a
// file resurrected on disk reuses its old identity.
func (s *Store) ListAllFilesIncludingDeletePending(ctx context.Context, homeDirectorySHA256 string) ([]File, error) {
	const q = `
		SELECT unique_sha256, home_directory, name, disk_name, file_sha256,
		       filetype_ext, size, mtime, delete_pending
		FROM files WHERE home_directory = ?
	`
	rows, err := s.db.QueryContext(ctx, q, homeDirectorySHA256)
	if err != nil {
		return nil, galleryerr.Transient("index.ListAllFilesIncludingDeletePending", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

func scanFiles(rows *sql.Rows) ([]File, error) {
	var out []File
	for rows.Next() {
		var f File
		var mtime int64
		if err := rows.Scan(&f.UniqueSHA256, &f.HomeDirectory, &f.Name, &f.DiskName, &f.FileSHA256,
			&f.FiletypeExt, &f.Size, &mtime, &f.DeletePending); err != nil {
			return nil, galleryerr.Transient("index.scanFiles", err)
		}
		f.Mtime = time.Unix(mtime, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// FileByUniqueSHA is one of the two primary external-URL access paths
// (spec.md §4.3.1).
func (s *Store) FileByUniqueSHA(ctx context.Context, uniqueSHA256 string) (*File, bool, error) {
	const q = `
		SELECT unique_sha256, home_directory, name, disk_name, file_sha256,
		       filetype_ext, size, mtime, delete_pending
		FROM files WHERE unique_sha256 = ?
	`
	var f File
	var mtime int64
	err := s.db.QueryRowContext(ctx, q, uniqueSHA256).Scan(
		&f.UniqueSHA256, &f.HomeDirectory, &f.Name, &f.DiskName, &f.FileSHA256,
		&f.FiletypeExt, &f.Size, &mtime, &f.DeletePending,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, galleryerr.Transient("index.FileByUniqueSHA", err)
	}
	f.Mtime = time.Unix(mtime, 0).UTC()
	return &f, true, nil
}

// FilesSharingContent returns every non-delete-pending file with the given
// file_sha256, the primitive C6's duplicate-suppression pass builds on.
func (s *Store) FilesSharingContent(ctx context.Context, fileSHA256 string) ([]File, error) {
	const q = `
		SELECT unique_sha256, home_directory, name, disk_name, file_sha256,
		       filetype_ext, size, mtime, delete_pending
		FROM files WHERE file_sha256 = ? AND delete_pending = 0
	`
	rows, err := s.db.QueryContext(ctx, q, fileSHA256)
	if err != nil {
		return nil, galleryerr.Transient("index.FilesSharingContent", err)
	}
	defer rows.Close()
	return scanFiles(rows)
}

// UpsertFile inserts a new File row or updates an existing one in place,
// preserving unique_sha256 (and therefore thumbnail association) across
// case-only renames per spec.md §4.3.2 step 5.
func (s *Store) UpsertFile(ctx context.Context, f *File) error {
	const q = `
		INSERT INTO files
			(unique_sha256, home_directory, name, disk_name, file_sha256,
			 filetype_ext, size, mtime, delete_pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_sha256) DO UPDATE SET
			home_directory = excluded.home_directory,
			name = excluded.name,
			disk_name = excluded.disk_name,
			file_sha256 = excluded.file_sha256,
			filetype_ext = excluded.filetype_ext,
			size = excluded.size,
			mtime = excluded.mtime,
			delete_pending = excluded.delete_pending
	`
	_, err := s.db.ExecContext(ctx, q,
		f.UniqueSHA256, f.HomeDirectory, f.Name, f.DiskName, f.FileSHA256,
		f.FiletypeExt, f.Size, f.Mtime.Unix(), f.DeletePending,
	)
	if err != nil {
		return galleryerr.Transient("index.UpsertFile", err)
	}
	return nil
}

// RenameFile updates the stored display name and on-disk name of an
// existing row (spec.md §4.3.2 step 5's "update the row" when content is
// unchanged but case drifted) without touching its identity or thumbnail
// association.
func (s *Store) RenameFile(ctx context.Context, uniqueSHA256, name, diskName string) error {
	const q = `UPDATE files SET name = ?, disk_name = ? WHERE unique_sha256 = ?`
	_, err := s.db.ExecContext(ctx, q, name, diskName, uniqueSHA256)
	if err != nil {
		return galleryerr.Transient("index.RenameFile", err)
	}
	return nil
}

// SetFileDeletePending marks a file row as no longer present on disk
// without hard-deleting it (spec.md §4.3.2 step 7 — a thumbnail response
// may still be in flight).
func (s *Store) SetFileDeletePending(ctx context.Context, uniqueSHA256 string, pending bool) error {
	const q = `UPDATE files SET delete_pending = ? WHERE unique_sha256 = ?`
	_, err := s.db.ExecContext(ctx, q, pending, uniqueSHA256)
	if err != nil {
		return galleryerr.Transient("index.SetFileDeletePending", err)
	}
	return nil
}

// GetCacheTracking reads the per-directory invalidation marker.
func (s *Store) GetCacheTracking(ctx context.Context, dirSHA256 string) (*CacheTrackingEntry, bool, error) {
	const q = `SELECT dir_sha256, invalidated, lastscan FROM cache_tracking WHERE dir_sha256 = ?`
	var e CacheTrackingEntry
	var lastScan int64
	err := s.db.QueryRowContext(ctx, q, dirSHA256).Scan(&e.DirSHA256, &e.Invalidated, &lastScan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, galleryerr.Transient("index.GetCacheTracking", err)
	}
	e.LastScan = time.Unix(lastScan, 0).UTC()
	return &e, true, nil
}

// UpsertCacheTracking writes the invalidation marker, creating it on first
// observation of a directory (spec.md §4.1, Cache-Tracking Entry lifecycle).
func (s *Store) UpsertCacheTracking(ctx context.Context, e *CacheTrackingEntry) error {
	const q = `
		INSERT INTO cache_tracking (dir_sha256, invalidated, lastscan)
		VALUES (?, ?, ?)
		ON CONFLICT(dir_sha256) DO UPDATE SET
			invalidated = excluded.invalidated,
			lastscan = excluded.lastscan
	`
	_, err := s.db.ExecContext(ctx, q, e.DirSHA256, e.Invalidated, e.LastScan.Unix())
	if err != nil {
		return galleryerr.Transient("index.UpsertCacheTracking", err)
	}
	return nil
}

// MarkInvalidated flips invalidated=true, creating the tracking row if it
// doesn't exist yet. Called by C5 on any filesystem event (spec.md §4.3.1).
func (s *Store) MarkInvalidated(ctx context.Context, dirSHA256 string) error {
	const q = `
		INSERT INTO cache_tracking (dir_sha256, invalidated, lastscan)
		VALUES (?, 1, 0)
		ON CONFLICT(dir_sha256) DO UPDATE SET invalidated = 1
	`
	_, err := s.db.ExecContext(ctx, q, dirSHA256)
	if err != nil {
		return galleryerr.Transient("index.MarkInvalidated", err)
	}
	return nil
}
