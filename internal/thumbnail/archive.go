package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/index"
)

// ErrBrokenArchive covers both a corrupt/password-protected archive and one
// with no usable image entry; both degrade to the same generic placeholder,
// cached once rather than retried on every request (spec.md §4.4.4).
var ErrBrokenArchive = errors.New("thumbnail: broken, encrypted, or empty archive")

// ExtractCoverImage opens an archive (zip/cbz, rar/cbr, and anything else
// github.com/mholt/archives recognizes) and returns the bytes of its
// first image entry in natural reading order — the same rule C3 applies
// when picking a directory's cover image (spec.md §4.4.3, "an archive's
// thumbnail is its first image's thumbnail").
func ExtractCoverImage(ctx context.Context, data []byte, registry *filetype.Registry) ([]byte, error) {
	format, _, err := archives.Identify(ctx, "", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokenArchive, err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("%w: format has no extractor", ErrBrokenArchive)
	}

	var bestName string
	var bestData []byte

	walkErr := extractor.Extract(ctx, bytes.NewReader(data), func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() {
			return nil
		}
		if !registry.GetByExt(filepath.Ext(f.NameInArchive)).IsImage {
			return nil
		}
		if bestData != nil && !index.NaturalLess(f.NameInArchive, bestName) {
			return nil
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		buf, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		bestName, bestData = f.NameInArchive, buf
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrokenArchive, walkErr)
	}
	if bestData == nil {
		return nil, fmt.Errorf("%w: no image entries", ErrBrokenArchive)
	}
	return bestData, nil
}

// isArchiveExt reports whether ext (as classified by the filetype
// registry) names an archive this backend should route through
// ExtractCoverImage rather than straight into image.Decode.
func isArchiveExt(registry *filetype.Registry, ext string) bool {
	return registry.GetByExt(ext).IsArchive
}
