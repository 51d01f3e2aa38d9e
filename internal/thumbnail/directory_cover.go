package thumbnail

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/index"
)

// DirectoryCover is the outcome of picking which file represents a
// directory's thumbnail, or the registry icon to fall back to
// (spec.md §4.4.3).
type DirectoryCover struct {
	FileSHA256   string
	IconFallback string // set only when no contained file qualifies
}

// SelectDirectoryCover implements the three-step rule in order: a
// cover-name stem match, then the natural-name-first image, then the
// Filetype registry's .dir icon.
func SelectDirectoryCover(ctx context.Context, store *index.Store, registry *filetype.Registry, coverNames []string, dirSHA256 string) (DirectoryCover, error) {
	files, err := store.ListFiles(ctx, dirSHA256)
	if err != nil {
		return DirectoryCover{}, err
	}

	if sha, ok := matchCoverName(files, coverNames); ok {
		return DirectoryCover{FileSHA256: sha}, nil
	}
	if sha, ok := firstImageByName(files, registry); ok {
		return DirectoryCover{FileSHA256: sha}, nil
	}
	return DirectoryCover{IconFallback: registry.GetByExt(".dir").IconFilename}, nil
}

func matchCoverName(files []index.File, coverNames []string) (string, bool) {
	for _, name := range coverNames {
		want := strings.ToLower(name)
		for _, f := range files {
			stem := strings.ToLower(strings.TrimSuffix(f.Name, filepath.Ext(f.Name)))
			if stem == want {
				return f.FileSHA256, true
			}
		}
	}
	return "", false
}

func firstImageByName(files []index.File, registry *filetype.Registry) (string, bool) {
	var bestName, bestSHA string
	found := false
	for _, f := range files {
		if !registry.GetByExt(f.FiletypeExt).IsImage {
			continue
		}
		if !found || index.NaturalLess(f.Name, bestName) {
			bestName, bestSHA, found = f.Name, f.FileSHA256, true
		}
	}
	return bestSHA, found
}
