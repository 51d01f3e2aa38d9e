package thumbnail

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// namedSemaphores is a process-wide registry of weighted semaphores keyed
// by name, so the generation pipeline's concurrency cap can be shared by
// name with any other subsystem that needs to respect the same budget
// (spec.md §4.4.2: "must be enforceable by a named semaphore/key so other
// subsystems can share it").
var namedSemaphores = struct {
	mu sync.Mutex
	m  map[string]*semaphore.Weighted
}{m: map[string]*semaphore.Weighted{}}

// GenerationSemaphoreName is the shared key for the thumbnail generation
// concurrency budget (spec.md §4.4.2, concurrency cap 2 process-wide).
const GenerationSemaphoreName = "thumbnail_generation"

// NamedSemaphore returns the process-wide semaphore registered under name,
// creating it with the given weight on first use. Subsequent calls with a
// different weight do not resize an already-created semaphore.
func NamedSemaphore(name string, weight int64) *semaphore.Weighted {
	namedSemaphores.mu.Lock()
	defer namedSemaphores.mu.Unlock()

	if sem, ok := namedSemaphores.m[name]; ok {
		return sem
	}
	sem := semaphore.NewWeighted(weight)
	namedSemaphores.m[name] = sem
	return sem
}
