// Package invalidator implements C5: turning filesystem notifications into
// directory invalidations in the index (C3), robustly.
package invalidator

import (
	"sync"
	"time"

	"github.com/galleryhost/gallery/pkg/debounce"
)

// CoalescingBuffer accumulates directory paths touched by filesystem
// events and flushes the whole accumulated set at once after a quiet
// period, rather than invalidating on every individual event
// (spec.md §4.5.2). Adapted from the teacher's pkg/debounce.Debouncer:
// that type's "latest submitted function wins" semantics collapse a burst
// of calls to one execution of whichever function was submitted last.
// Here every call submits the *same* flush closure, so "latest wins"
// becomes "coalesce" — the closure always drains whatever has
// accumulated in pending by the time the timer fires, not just the one
// path that happened to arm it.
type CoalescingBuffer struct {
	mu          sync.Mutex
	pending     map[string]struct{}
	debouncer   *debounce.Debouncer
	onFlush     func(paths []string)
	onDuplicate func()
}

// NewCoalescingBuffer returns a buffer that calls onFlush with the
// accumulated, deduplicated set of paths once delay has passed with no
// new Add calls. onDuplicate, if non-nil, is called once per Add that
// named a path already pending (spec.md §4.5.2, "deduplication").
func NewCoalescingBuffer(delay time.Duration, onFlush func(paths []string), onDuplicate func()) *CoalescingBuffer {
	b := &CoalescingBuffer{
		pending:     map[string]struct{}{},
		onFlush:     onFlush,
		onDuplicate: onDuplicate,
	}
	b.debouncer = debounce.New(delay)
	return b
}

// Add inserts path into the pending set and (re)arms the debounce timer.
func (b *CoalescingBuffer) Add(path string) {
	b.mu.Lock()
	_, existed := b.pending[path]
	b.pending[path] = struct{}{}
	b.mu.Unlock()

	if existed && b.onDuplicate != nil {
		b.onDuplicate()
	}
	b.debouncer.Do(b.flush)
}

// Len reports the current key count, used by the soft-cap overflow check
// (spec.md §4.5.5, "bounded in keys").
func (b *CoalescingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Reset atomically swaps the pending set for an empty one and returns the
// snapshot. Used directly by the soft-cap overflow path, which discards
// the individual entries in favor of one coarse root invalidation.
func (b *CoalescingBuffer) Reset() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.pending))
	for p := range b.pending {
		paths = append(paths, p)
	}
	b.pending = map[string]struct{}{}
	return paths
}

func (b *CoalescingBuffer) flush() {
	paths := b.Reset()
	if len(paths) > 0 && b.onFlush != nil {
		b.onFlush(paths)
	}
}

// Stop shuts down the underlying debouncer. Any pending flush still
// queued runs once more before Stop returns.
func (b *CoalescingBuffer) Stop() {
	b.debouncer.Stop()
}
