package thumbnail

import (
	"context"
	"database/sql"

	"github.com/galleryhost/gallery/internal/dbinterface"
	"github.com/galleryhost/gallery/internal/galleryerr"
)

// Store is the repository over the thumbnail_records table, grounded on
// the teacher's filesmanager.Repository shape: accept any
// dbinterface.Querier so callers can run it pooled or inside a
// transaction interchangeably.
type Store struct {
	db dbinterface.Querier
}

func NewStore(q dbinterface.Querier) *Store {
	return &Store{db: q}
}

// Get returns the record for sha256, or (nil, false) if no row exists yet.
func (s *Store) Get(ctx context.Context, sha256 string) (*Record, bool, error) {
	const q = `SELECT sha256_hash, small_thumb, medium_thumb, large_thumb FROM thumbnail_records WHERE sha256_hash = ?`
	var r Record
	err := s.db.QueryRowContext(ctx, q, sha256).Scan(&r.SHA256, &r.Small, &r.Medium, &r.Large)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, galleryerr.Transient("thumbnail.Get", err)
	}
	return &r, true, nil
}

// BulkUpsert writes a batch of records in one statement, amortizing
// store-write overhead across the batch (spec.md §4.4.2, "Batching").
// Built with dbinterface.BuildQueryWithPlaceholders rather than
// one-row-at-a-time ON CONFLICT statements.
func (s *Store) BulkUpsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	const cols = 4
	template := `
		INSERT INTO thumbnail_records (sha256_hash, small_thumb, medium_thumb, large_thumb)
		VALUES %s
		ON CONFLICT(sha256_hash) DO UPDATE SET
			small_thumb = excluded.small_thumb,
			medium_thumb = excluded.medium_thumb,
			large_thumb = excluded.large_thumb
	`
	query := dbinterface.BuildQueryWithPlaceholders(template, cols, len(records))

	args := make([]any, 0, cols*len(records))
	for _, r := range records {
		args = append(args, r.SHA256, nullIfEmpty(r.Small), nullIfEmpty(r.Medium), nullIfEmpty(r.Large))
	}

	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return galleryerr.Transient("thumbnail.BulkUpsert", err)
	}
	return nil
}

func nullIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Invalidate clears all three slots but keeps the row itself, ready to be
// refilled on next access (spec.md §4.4.1).
func (s *Store) Invalidate(ctx context.Context, sha256 string) error {
	const q = `UPDATE thumbnail_records SET small_thumb = NULL, medium_thumb = NULL, large_thumb = NULL WHERE sha256_hash = ?`
	_, err := s.db.ExecContext(ctx, q, sha256)
	if err != nil {
		return galleryerr.Transient("thumbnail.Invalidate", err)
	}
	return nil
}

// DeleteOrphaned removes thumbnail_records rows whose SHA no longer has
// any live (non-delete-pending) File row, the GC step the sweep job runs
// (spec.md §4.4.5, "reaped by the sweeper").
func (s *Store) DeleteOrphaned(ctx context.Context) (int, error) {
	const q = `
		DELETE FROM thumbnail_records
		WHERE sha256_hash NOT IN (
			SELECT DISTINCT file_sha256 FROM files WHERE delete_pending = 0
		)
	`
	result, err := s.db.ExecContext(ctx, q)
	if err != nil {
		return 0, galleryerr.Transient("thumbnail.DeleteOrphaned", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
