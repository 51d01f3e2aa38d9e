package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"the GREAT gatsby": "The Great Gatsby",
		"a.jpg":             "A.jpg",
		"FOO.JPG":           "Foo.jpg",
		"  spaced  out  ":   "  Spaced  Out  ",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, TitleCase(in), "input %q", in)
	}
}

func TestDirSHA256Deterministic(t *testing.T) {
	a := DirSHA256("/root/photos/")
	b := DirSHA256("/root/photos/")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, DirSHA256("/root/videos/"))
}

func TestDirSHA256FoldsCaseForIdentityOnly(t *testing.T) {
	assert.Equal(t, DirSHA256("/Root/Photos/"), DirSHA256("/root/photos/"),
		"dir_sha256 must be case-insensitive per spec.md §4.1")
}

func TestCanonicalDirPreservesCaseForIO(t *testing.T) {
	dir := t.TempDir() // embeds a PascalCase test function name
	sub := filepath.Join(dir, "MixedCase")
	require.NoError(t, os.Mkdir(sub, 0755))

	canonical := CanonicalDir(sub)
	assert.Contains(t, canonical, "MixedCase", "CanonicalDir must not lower-case the real on-disk path")

	info, err := os.Stat(canonical)
	require.NoError(t, err, "the canonical form must remain directly usable for real I/O")
	assert.True(t, info.IsDir())
}

func TestCombinedSHA256Empty(t *testing.T) {
	assert.Equal(t, DirSHA256(""), CombinedSHA256(nil))
}

func TestFileSHAsContentAndUniqueDiffer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("X"), 0644))

	fileSHA, uniqueSHA, err := FileSHAs(path, path)
	require.NoError(t, err)
	assert.NotEmpty(t, fileSHA)
	assert.NotEmpty(t, uniqueSHA)
	assert.NotEqual(t, fileSHA, uniqueSHA)

	// Same content at a different path shares file_sha256 but not unique_sha256.
	otherPath := filepath.Join(dir, "b.jpg")
	require.NoError(t, os.WriteFile(otherPath, []byte("X"), 0644))
	otherFileSHA, otherUniqueSHA, err := FileSHAs(otherPath, otherPath)
	require.NoError(t, err)
	assert.Equal(t, fileSHA, otherFileSHA)
	assert.NotEqual(t, uniqueSHA, otherUniqueSHA)
}

func TestNormalizerCachesAndBounds(t *testing.T) {
	n, err := NewNormalizer(2)
	require.NoError(t, err)

	dir := t.TempDir()
	c1, s1 := n.CanonicalizeAndHash(dir)
	c2, s2 := n.CanonicalizeAndHash(dir)
	assert.Equal(t, c1, c2)
	assert.Equal(t, s1, s2)

	// Push past the bound; the cache must not grow unbounded.
	n.Canonicalize(dir + "a")
	n.Canonicalize(dir + "b")
	n.Canonicalize(dir + "c")
	assert.LessOrEqual(t, n.dirCache.Len(), 2)
}
