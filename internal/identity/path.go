package identity

import (
	"path/filepath"
	"strings"
)

// CanonicalDir resolves relative components and symlinks in p and ensures
// exactly one trailing path separator. The real, case-preserving on-disk
// casing is kept: this is the form stored as Directory.FQPN and handed to
// os.Stat/os.ReadDir/os.Open, not just an identity token. Case-folding for
// dir_sha256 (spec.md §4.1) happens separately, inside DirSHA256, so a
// mixed-case directory on a case-sensitive filesystem can still be synced.
//
// Symlink resolution failure (e.g. a dangling link, or the path not yet
// existing on disk) falls back to the lexically-cleaned, unresolved form;
// callers that need existence guarantees check that separately during
// sync (spec.md §4.3.5, NotFound).
func CanonicalDir(p string) string {
	cleaned := filepath.Clean(p)

	if resolved, err := filepath.EvalSymlinks(cleaned); err == nil {
		cleaned = resolved
	}

	if !strings.HasSuffix(cleaned, string(filepath.Separator)) {
		cleaned += string(filepath.Separator)
	}

	return cleaned
}

// RelChild returns the child path name joined under a canonical parent
// directory, matching the separator convention CanonicalDir produces.
func RelChild(canonicalParent, name string) string {
	return filepath.Join(canonicalParent, name)
}
