package invalidator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryhost/gallery/internal/config"
)

type fakeSyncer struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeSyncer) MarkInvalid(ctx context.Context, path string) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	return nil
}

func (f *fakeSyncer) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func TestInvalidatorMarksDirectoryInvalidOnFileCreate(t *testing.T) {
	dir := t.TempDir()
	syncer := &fakeSyncer{}
	cfg := config.Default()
	cfg.InvalidatorDebounceSeconds = 1

	inv := New(dir, syncer, cfg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go inv.Run(ctx)
	t.Cleanup(func() {
		cancel()
		inv.Stop()
	})

	time.Sleep(50 * time.Millisecond) // let the watcher subscribe before the write
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		return len(syncer.snapshot()) > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestInvalidatorWatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	syncer := &fakeSyncer{}
	cfg := config.Default()
	cfg.InvalidatorDebounceSeconds = 1

	inv := New(dir, syncer, cfg, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go inv.Run(ctx)
	t.Cleanup(func() {
		cancel()
		inv.Stop()
	})

	time.Sleep(50 * time.Millisecond)
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(50 * time.Millisecond) // let addRecursive pick up the new subtree

	require.NoError(t, os.WriteFile(filepath.Join(sub, "child.txt"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		for _, p := range syncer.snapshot() {
			if p == sub {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHandleEventSoftCapFallsBackToRootInvalidation(t *testing.T) {
	dir := t.TempDir()
	syncer := &fakeSyncer{}
	cfg := config.Default()
	cfg.InvalidatorSoftCapKeys = 2
	cfg.InvalidatorDebounceSeconds = 3600

	inv := New(dir, syncer, cfg, nil, nil)
	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	t.Cleanup(func() { fsw.Close() })

	// Three distinct containing directories, so each Add grows the
	// buffer's key count rather than deduping against the same key.
	inv.handleEvent(fsw, fsnotify.Event{Name: filepath.Join(dir, "sub1", "a"), Op: fsnotify.Write})
	inv.handleEvent(fsw, fsnotify.Event{Name: filepath.Join(dir, "sub2", "b"), Op: fsnotify.Write})
	inv.handleEvent(fsw, fsnotify.Event{Name: filepath.Join(dir, "sub3", "c"), Op: fsnotify.Write})

	paths := syncer.snapshot()
	require.Len(t, paths, 1)
	assert.Equal(t, dir, paths[0])
}
