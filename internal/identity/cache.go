package identity

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// pathCacheSize is spec.md §4.1's "bounded LRU, ~5000 entries". Unlike the
// TTL-bounded caches elsewhere in this codebase (stringutils.Normalizer,
// the Layout Cache), this one must enforce a hard entry count regardless
// of access recency, so it is backed by a true LRU rather than a TTL map.
const pathCacheSize = 5000

// Normalizer memoizes path canonicalization and directory SHA computation,
// the two pure operations spec.md §4.1 requires to be cached. File content
// hashing is intentionally never cached here — that is C3's job through
// the File row.
type Normalizer struct {
	dirCache *lru.Cache[string, string] // raw path -> CanonicalDir(path), case preserved
	shaCache *lru.Cache[string, string] // canonical path -> DirSHA256(canonical), case folded internally
}

// NewNormalizer builds a path/SHA memoization layer with the spec-mandated
// bound. Construction only fails if size is non-positive, which cannot
// happen with the package constant, so the error is discarded by callers
// that use NewDefaultNormalizer.
func NewNormalizer(size int) (*Normalizer, error) {
	dirCache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	shaCache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Normalizer{dirCache: dirCache, shaCache: shaCache}, nil
}

// NewDefaultNormalizer builds a Normalizer sized per spec.md §4.1.
func NewDefaultNormalizer() *Normalizer {
	n, _ := NewNormalizer(pathCacheSize)
	return n
}

// Canonicalize returns the memoized canonical form of path.
func (n *Normalizer) Canonicalize(path string) string {
	if cached, ok := n.dirCache.Get(path); ok {
		return cached
	}
	canonical := CanonicalDir(path)
	n.dirCache.Add(path, canonical)
	return canonical
}

// DirSHA returns the memoized dir_sha256 for an already-canonical path.
func (n *Normalizer) DirSHA(canonicalPath string) string {
	if cached, ok := n.shaCache.Get(canonicalPath); ok {
		return cached
	}
	sha := DirSHA256(canonicalPath)
	n.shaCache.Add(canonicalPath, sha)
	return sha
}

// CanonicalizeAndHash is the common-path helper: normalize then hash,
// each memoized independently so repeated lookups of the same raw path
// under different callers still hit cache at both stages.
func (n *Normalizer) CanonicalizeAndHash(path string) (canonical, sha string) {
	canonical = n.Canonicalize(path)
	sha = n.DirSHA(canonical)
	return canonical, sha
}
