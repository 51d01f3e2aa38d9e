package invalidator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/metrics"
)

// Syncer is the subset of index.Syncer the invalidator depends on: a
// directory path to an invalidation (spec.md §4.5.3). A narrow interface
// keeps this package from importing all of index for one method, the
// same shape dbinterface.Querier uses to avoid import cycles.
type Syncer interface {
	MarkInvalid(ctx context.Context, path string) error
}

// Invalidator owns the recursive filesystem watcher, the coalescing
// buffer, and the periodic-restart/backoff lifecycle (spec.md §4.5).
type Invalidator struct {
	root      string
	cfg       *config.Config
	syncer    Syncer
	collector *metrics.GalleryCollector
	buffer    *CoalescingBuffer

	// onInvalidated runs after a directory's Cache-Tracking flag is
	// flipped, so a caller can bulk-purge Layout-Cache entries keyed by
	// that directory's SHA (spec.md §4.5.3, "bulk-clears any
	// Layout-Cache entries").
	onInvalidated func(path string)

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New builds an Invalidator watching root.
func New(root string, syncer Syncer, cfg *config.Config, collector *metrics.GalleryCollector, onInvalidated func(path string)) *Invalidator {
	inv := &Invalidator{
		root:          root,
		cfg:           cfg,
		syncer:        syncer,
		collector:     collector,
		onInvalidated: onInvalidated,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	inv.buffer = NewCoalescingBuffer(debounceDelay(cfg), inv.flush, inv.recordCoalesced)
	return inv
}

func debounceDelay(cfg *config.Config) time.Duration {
	if cfg.InvalidatorDebounceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.InvalidatorDebounceSeconds) * time.Second
}

// Run starts the watcher and blocks until ctx is canceled or Stop is
// called. Startup failure is retried with capped exponential backoff; the
// system stays usable in the meantime, it simply misses automatic
// invalidation until the watcher comes up (spec.md §4.5.5). The periodic
// restart schedule tears the watcher down and recreates it to defend
// against platform watcher leaks and missed events (spec.md §4.5.4).
func (inv *Invalidator) Run(ctx context.Context) {
	defer close(inv.done)
	defer inv.buffer.Stop()

	backoff := time.Second
	const maxBackoff = 2 * time.Minute

	for {
		fsw, err := inv.startWatcher()
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("invalidator: watcher start failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			case <-inv.stop:
				return
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		restart := time.NewTimer(restartInterval(inv.cfg))
		inv.watchLoop(ctx, fsw, restart.C)
		restart.Stop()
		fsw.Close()

		select {
		case <-ctx.Done():
			return
		case <-inv.stop:
			return
		default:
			// Restart fired, or the watcher's channels closed out from
			// under us (a watcher crash); loop around and recreate it.
		}
	}
}

// Stop ends Run's loop and waits for it to return.
func (inv *Invalidator) Stop() {
	inv.mu.Lock()
	select {
	case <-inv.stop:
		inv.mu.Unlock()
		return
	default:
		close(inv.stop)
	}
	inv.mu.Unlock()
	<-inv.done
}

func (inv *Invalidator) startWatcher() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(fsw, inv.root); err != nil {
		fsw.Close()
		return nil, err
	}
	return fsw, nil
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("invalidator: failed to watch directory")
			}
		}
		return nil
	})
}

// watchLoop consumes fsw's events until ctx is canceled, Stop is called,
// or the restart timer fires. A watcher crash surfaces as its Events or
// Errors channel closing, handled the same way as a restart: return and
// let Run's outer loop recreate the watcher (spec.md §4.5.5).
func (inv *Invalidator) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, restart <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-inv.stop:
			return
		case <-restart:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			inv.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("invalidator: watcher error")
		}
	}
}

func (inv *Invalidator) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	inv.buffer.Add(filepath.Dir(ev.Name))

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addRecursive(fsw, ev.Name); err != nil {
				log.Warn().Err(err).Str("path", ev.Name).Msg("invalidator: failed to watch new subtree")
			}
			inv.buffer.Add(ev.Name)
		}
	}
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		_ = fsw.Remove(ev.Name)
	}

	if inv.buffer.Len() > softCap(inv.cfg) {
		inv.buffer.Reset()
		inv.flush([]string{inv.root})
	}
}

func softCap(cfg *config.Config) int {
	if cfg.InvalidatorSoftCapKeys <= 0 {
		return 500
	}
	return cfg.InvalidatorSoftCapKeys
}

func restartInterval(cfg *config.Config) time.Duration {
	if len(cfg.WatcherRestartSchedule) == 0 {
		return time.Hour
	}
	if d, err := time.ParseDuration(cfg.WatcherRestartSchedule[0]); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

// flush is the coalescing buffer's onFlush callback: the Flush action
// from spec.md §4.5.3, run outside the buffer's lock on a point-in-time
// snapshot.
func (inv *Invalidator) flush(paths []string) {
	ctx := context.Background()
	if inv.collector != nil {
		inv.collector.RecordInvalidatorFlush(len(paths))
	}
	for _, path := range paths {
		if err := inv.syncer.MarkInvalid(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("invalidator: mark_invalid failed")
			continue
		}
		if inv.onInvalidated != nil {
			inv.onInvalidated(path)
		}
	}
}

func (inv *Invalidator) recordCoalesced() {
	if inv.collector != nil {
		inv.collector.RecordInvalidatorCoalesced(1)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
