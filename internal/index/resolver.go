package index

import (
	"context"
	"path/filepath"

	"github.com/galleryhost/gallery/internal/dbinterface"
	"github.com/galleryhost/gallery/internal/galleryerr"
)

// SourcePath is an on-disk location the thumbnail pipeline can read bytes
// from to generate a preview, together with the extension C2 classifies it
// by (spec.md §4.4.2, "the pipeline must resolve a content SHA back to a
// readable file before it can decode anything").
type SourcePath struct {
	AbsolutePath string
	Ext          string
}

// Resolver resolves a File's content SHA (the key thumbnail_records is
// stored under) back to one readable on-disk location. Thumbnails are
// shared by content, so any live File row carrying that file_sha256 will
// do; ties are broken by lexicographically-first unique_sha256 so the
// choice is stable across calls, matching suppressDuplicateContent.
type Resolver struct {
	db dbinterface.Querier
}

func NewResolver(q dbinterface.Querier) *Resolver {
	return &Resolver{db: q}
}

// ResolveSourcePath finds a live file with the given content SHA and
// returns its absolute path plus extension. Returns galleryerr.NotFound
// when no live file carries that content anymore (every copy was deleted
// since the thumbnail was queued).
func (r *Resolver) ResolveSourcePath(ctx context.Context, fileSHA256 string) (SourcePath, error) {
	store := NewStore(r.db)

	candidates, err := store.FilesSharingContent(ctx, fileSHA256)
	if err != nil {
		return SourcePath{}, err
	}
	if len(candidates) == 0 {
		return SourcePath{}, galleryerr.NotFound("index.ResolveSourcePath", errNoLiveCopy)
	}

	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.UniqueSHA256 < best.UniqueSHA256 {
			best = f
		}
	}

	dir, ok, err := store.GetDirectory(ctx, best.HomeDirectory)
	if err != nil {
		return SourcePath{}, err
	}
	if !ok {
		return SourcePath{}, galleryerr.NotFound("index.ResolveSourcePath", errNoLiveCopy)
	}

	return SourcePath{
		AbsolutePath: filepath.Join(dir.FQPN, best.DiskName),
		Ext:          best.FiletypeExt,
	}, nil
}

var errNoLiveCopy = notFoundErr("no live file carries this content anymore")

type notFoundErr string

func (e notFoundErr) Error() string { return string(e) }
