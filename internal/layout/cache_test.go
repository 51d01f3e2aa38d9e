package layout

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryhost/gallery/internal/index"
)

func TestCacheComputesOnceAndMemoizes(t *testing.T) {
	var calls int32
	cache := NewCache(time.Minute, func(key CacheKey) Page {
		atomic.AddInt32(&calls, 1)
		return Page{Pagination: Pagination{CurrentPage: key.Page}}
	})

	key := CacheKey{DirSHA256: "dir-a", Sort: index.SortNaturalName, Page: 1}
	first := cache.Get(key)
	second := cache.Get(key)

	assert.Equal(t, 1, first.Pagination.CurrentPage)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCachePurgeDirectoryEvictsEveryKeyForThatDirOnly(t *testing.T) {
	var calls int32
	cache := NewCache(time.Minute, func(key CacheKey) Page {
		atomic.AddInt32(&calls, 1)
		return Page{Pagination: Pagination{CurrentPage: key.Page}}
	})

	keyA1 := CacheKey{DirSHA256: "dir-a", Sort: index.SortNaturalName, Page: 1}
	keyA2 := CacheKey{DirSHA256: "dir-a", Sort: index.SortNaturalName, Page: 2, ShowDuplicates: true}
	keyB1 := CacheKey{DirSHA256: "dir-b", Sort: index.SortNaturalName, Page: 1}

	cache.Get(keyA1)
	cache.Get(keyA2)
	cache.Get(keyB1)
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))

	cache.PurgeDirectory("dir-a")

	cache.Get(keyA1)
	cache.Get(keyA2)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "both dir-a keys must recompute after purge")

	cache.Get(keyB1)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls), "dir-b must still be cached")
}
