package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const contentChunkSize = 4096

// DirSHA256 is SHA-256 of a directory's canonical fqpn (CanonicalDir's
// output), folded to lowercase here so identity is case-insensitive
// (spec.md §4.1) without the fqpn itself ever being mangled for I/O.
func DirSHA256(canonicalFQPN string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(canonicalFQPN)))
	return hex.EncodeToString(sum[:])
}

// CombinedSHA256 is SHA-256 of the concatenation of the given file content
// SHAs, which must already be in sorted order (spec.md §3, "Combined SHA").
// An empty directory's combined SHA is SHA256 of the empty byte string.
func CombinedSHA256(sortedFileSHAs []string) string {
	h := sha256.New()
	for _, sha := range sortedFileSHAs {
		h.Write([]byte(sha))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileSHAs streams path in 4KiB chunks to compute file_sha256, then
// continues the same hash state with the title-cased full path to
// compute unique_sha256 (spec.md §4.1). fullPath is the absolute path
// used for the unique-SHA continuation, title-cased by the caller's
// convention before being passed in is not required — TitleCase is
// applied here so callers always pass the raw on-disk path.
func FileSHAs(path string, fullPath string) (fileSHA256, uniqueSHA256 string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, contentChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", "", fmt.Errorf("read %s: %w", path, readErr)
		}
	}

	fileSHA256 = hex.EncodeToString(h.Sum(nil))

	// Continue the same running hash state with the title-cased path bytes
	// to derive unique_sha256, rather than re-hashing from scratch.
	h.Write([]byte(TitleCase(fullPath)))
	uniqueSHA256 = hex.EncodeToString(h.Sum(nil))

	return fileSHA256, uniqueSHA256, nil
}
