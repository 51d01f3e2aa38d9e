package index

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/identity"
)

// scannedFile is one on-disk, non-ignored file entry discovered by a scan.
type scannedFile struct {
	DiskName  string // the exact on-disk name
	Name      string // title-cased per identity.TitleCase
	FullPath  string
	Size      int64
	Mtime     time.Time
}

// scannedDir is one on-disk, non-ignored subdirectory entry.
type scannedDir struct {
	DiskName string
	FullPath string
}

// scanResult is the partitioned output of step 2 of the sync algorithm
// (spec.md §4.3.2): on-disk files and on-disk subdirectories, with ignore
// rules already applied.
type scanResult struct {
	Files []scannedFile
	Dirs  []scannedDir
}

// scanOne enumerates the immediate (non-recursive) children of absPath,
// applying the dotfile/extension/filename ignore rules (all
// case-insensitive, spec.md §6) and title-casing every retained name.
func scanOne(cfg *config.Config, absPath string) (scanResult, error) {
	entries, err := os.ReadDir(absPath)
	if err != nil {
		return scanResult{}, err
	}

	ignoredFiles := cfg.IgnoredFileSet()
	ignoredExts := cfg.IgnoredExtensionSet()

	var result scanResult
	for _, entry := range entries {
		name := entry.Name()

		if cfg.IgnoreDotfiles && strings.HasPrefix(name, ".") {
			continue
		}
		if _, skip := ignoredFiles[strings.ToLower(name)]; skip {
			continue
		}

		fullPath := filepath.Join(absPath, name)

		if entry.IsDir() {
			result.Dirs = append(result.Dirs, scannedDir{
				DiskName: name,
				FullPath: fullPath,
			})
			continue
		}

		ext := strings.ToLower(filepath.Ext(name))
		if _, skip := ignoredExts[ext]; skip {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Per-entry stat failure: log, skip the entry and continue
			// (spec.md §4.3.5).
			log.Warn().Err(err).Str("path", fullPath).Msg("skipping file that could not be stat'ed")
			continue
		}

		result.Files = append(result.Files, scannedFile{
			DiskName: name,
			Name:     identity.TitleCase(name),
			FullPath: fullPath,
			Size:     info.Size(),
			Mtime:    info.ModTime(),
		})
	}

	return result, nil
}
