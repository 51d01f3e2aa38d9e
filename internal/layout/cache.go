package layout

import (
	"fmt"
	"sync"
	"time"

	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/pkg/stringutils"
)

// layoutCacheTTL bounds how long a page can go un-evicted even if no
// invalidation ever names its directory; the invalidator's bulk purge
// (spec.md §4.6, "Memoization") is the normal eviction path, this is the
// backstop.
const layoutCacheTTL = 10 * time.Minute

// CacheKey is the Layout-Cache key of spec.md §3's "Layout-Cache Entry":
// (dir_sha256, sort_order, page_number, show_duplicates).
type CacheKey struct {
	DirSHA256      string
	Sort           index.SortOrder
	Page           int
	ShowDuplicates bool
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%d|%d|%v", k.DirSHA256, k.Sort, k.Page, k.ShowDuplicates)
}

// Cache memoizes computed Pages, adapted from pkg/stringutils.Normalizer:
// that type wraps a TTL cache with "compute on miss, remember the
// transform" semantics for a single comparable key. CacheKey is itself
// comparable (all fields are), so the Normalizer generic instantiates
// directly over it with no string-encoding step. The one capability the
// bare Normalizer doesn't offer is spec.md §3's "purge every entry for
// this dir_sha256 at once" — Normalizer.Clear removes one exact key. Cache
// adds a small reverse index, keyed by DirSHA256, of which CacheKeys are
// currently live so PurgeDirectory can evict all of them in one call.
type Cache struct {
	normalizer *stringutils.Normalizer[CacheKey, Page]

	mu        sync.Mutex
	keysByDir map[string]map[CacheKey]struct{}
}

// NewCache builds a Cache that computes misses via compute.
func NewCache(ttl time.Duration, compute func(CacheKey) Page) *Cache {
	return &Cache{
		normalizer: stringutils.NewNormalizer(ttl, compute),
		keysByDir:  map[string]map[CacheKey]struct{}{},
	}
}

// Get returns the Page for key, computing and memoizing it on first use.
func (c *Cache) Get(key CacheKey) Page {
	c.track(key)
	return c.normalizer.Normalize(key)
}

func (c *Cache) track(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.keysByDir[key.DirSHA256]
	if !ok {
		set = map[CacheKey]struct{}{}
		c.keysByDir[key.DirSHA256] = set
	}
	set[key] = struct{}{}
}

// PurgeDirectory evicts every cached Page keyed by dirSHA256, regardless
// of sort/page/show_duplicates (spec.md §4.6, "all entries for that
// dir_sha256 ... are evicted"). Safe to call for a directory with nothing
// cached.
func (c *Cache) PurgeDirectory(dirSHA256 string) {
	c.mu.Lock()
	keys := c.keysByDir[dirSHA256]
	delete(c.keysByDir, dirSHA256)
	c.mu.Unlock()

	for key := range keys {
		c.normalizer.Clear(key)
	}
}
