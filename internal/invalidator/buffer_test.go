package invalidator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescingBufferDedupesWithinWindow(t *testing.T) {
	var flushed [][]string
	var mu sync.Mutex
	var duplicates int32

	b := NewCoalescingBuffer(30*time.Millisecond, func(paths []string) {
		mu.Lock()
		flushed = append(flushed, paths)
		mu.Unlock()
	}, func() {
		atomic.AddInt32(&duplicates, 1)
	})
	t.Cleanup(b.Stop)

	b.Add("/a")
	b.Add("/a")
	b.Add("/b")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	got := flushed[0]
	mu.Unlock()
	assert.ElementsMatch(t, []string{"/a", "/b"}, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&duplicates))
}

func TestCoalescingBufferResetDrainsPending(t *testing.T) {
	b := NewCoalescingBuffer(time.Hour, func([]string) {}, nil)
	t.Cleanup(b.Stop)

	b.Add("/a")
	b.Add("/b")
	assert.Equal(t, 2, b.Len())

	paths := b.Reset()
	assert.ElementsMatch(t, []string{"/a", "/b"}, paths)
	assert.Equal(t, 0, b.Len())
}
