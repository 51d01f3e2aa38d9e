package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/galleryhost/gallery/internal/config"
	"github.com/galleryhost/gallery/internal/filetype"
	"github.com/galleryhost/gallery/internal/galleryerr"
	"github.com/galleryhost/gallery/internal/index"
	"github.com/galleryhost/gallery/internal/metrics"
)

// Pipeline implements C4's get_or_create/send/invalidate contract
// (spec.md §4.4.1) in front of the thumbnail_records store: a bounded,
// batched background worker pool plus a synchronous single-size path for
// direct requests. Grounded on the mage project's ThumbnailHandler
// (singleflight request coalescing + a bounded process-wide semaphore).
type Pipeline struct {
	store    *Store
	resolver *index.Resolver
	registry *filetype.Registry
	backend  ImageBackend
	cfg      *config.Config
	collector *metrics.GalleryCollector

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}
	queue   chan string
	closed  chan struct{}
	wg      sync.WaitGroup
}

func NewPipeline(store *Store, resolver *index.Resolver, registry *filetype.Registry, backend ImageBackend, cfg *config.Config, collector *metrics.GalleryCollector) *Pipeline {
	p := &Pipeline{
		store:     store,
		resolver:  resolver,
		registry:  registry,
		backend:   backend,
		cfg:       cfg,
		collector: collector,
		pending:   map[string]struct{}{},
		queue:     make(chan string, 256),
		closed:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// Close stops the background dispatcher. Batches already in flight finish.
func (p *Pipeline) Close() {
	close(p.closed)
	p.wg.Wait()
}

// GetOrCreate returns the stored record if every slot is already
// populated; otherwise it schedules background generation and returns
// whatever partial record exists (spec.md §4.4.1).
func (p *Pipeline) GetOrCreate(ctx context.Context, sha256 string) (*Record, error) {
	rec, found, err := p.store.Get(ctx, sha256)
	if err != nil {
		return nil, err
	}
	if found && rec.Complete() {
		return rec, nil
	}
	p.enqueue(sha256)
	if found {
		return rec, nil
	}
	return &Record{SHA256: sha256}, nil
}

// Send returns the bytes for one size, generating it synchronously if
// absent (spec.md §4.4.1). Concurrent callers asking for the same
// (sha256, size) share one generation via singleflight.
func (p *Pipeline) Send(ctx context.Context, sha256, size string) ([]byte, error) {
	rec, found, err := p.store.Get(ctx, sha256)
	if err != nil {
		return nil, err
	}
	if found {
		if blob := rec.Slot(size); len(blob) > 0 {
			return blob, nil
		}
	}
	if _, ok := p.sizeTargets()[size]; !ok {
		return nil, galleryerr.NotFound("thumbnail.Send", fmt.Errorf("unknown thumbnail size %q", size))
	}

	v, err, _ := p.group.Do(sha256+":"+size, func() (any, error) {
		return p.generateOneSize(ctx, sha256, size)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate clears all three slots; the row itself remains (spec.md §4.4.1).
func (p *Pipeline) Invalidate(ctx context.Context, sha256 string) error {
	return p.store.Invalidate(ctx, sha256)
}

func (p *Pipeline) enqueue(sha256 string) {
	p.mu.Lock()
	if _, queued := p.pending[sha256]; queued {
		p.mu.Unlock()
		return
	}
	p.pending[sha256] = struct{}{}
	p.mu.Unlock()

	select {
	case p.queue <- sha256:
	default:
		// Queue full: drop the duplicate schedule, a later access will
		// enqueue it again.
		p.mu.Lock()
		delete(p.pending, sha256)
		p.mu.Unlock()
	}

	if p.collector != nil {
		p.collector.SetThumbnailQueueDepth(len(p.queue))
	}
}

func (p *Pipeline) dispatchLoop() {
	defer p.wg.Done()

	batchSize := p.cfg.ThumbnailBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for {
		var batch []string

		select {
		case sha, ok := <-p.queue:
			if !ok {
				return
			}
			batch = append(batch, sha)
		case <-p.closed:
			return
		}

	fill:
		for len(batch) < batchSize {
			select {
			case sha := <-p.queue:
				batch = append(batch, sha)
			default:
				break fill
			}
		}

		p.processBatch(batch)
	}
}

// processBatch generates every SHA in the batch with in-memory
// partial-update semantics, bounded by the named concurrency semaphore,
// then issues a single bulk write for the whole batch (spec.md §4.4.2,
// "Batching").
func (p *Pipeline) processBatch(shas []string) {
	sem := NamedSemaphore(GenerationSemaphoreName, int64(concurrencyLimit(p.cfg)))

	var mu sync.Mutex
	var records []Record
	var wg sync.WaitGroup

	for _, sha := range shas {
		wg.Add(1)
		go func(sha string) {
			defer wg.Done()
			defer func() {
				p.mu.Lock()
				delete(p.pending, sha)
				p.mu.Unlock()
			}()

			ctx := context.Background()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			rec, ok := p.generateAll(ctx, sha)
			if !ok {
				return
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
		}(sha)
	}
	wg.Wait()

	if len(records) == 0 {
		return
	}
	_ = p.store.BulkUpsert(context.Background(), records)
}

// generateAll produces every configured size for sha256. ok is false when
// nothing should be persisted: either the content has no live file left
// (spec.md §4.4.5, "skip; reaped by the sweeper") or the backend timed
// out (leave slots empty, retry on next access).
func (p *Pipeline) generateAll(ctx context.Context, sha256 string) (Record, bool) {
	data, _, err := p.readSource(ctx, sha256)
	if err != nil {
		if errors.Is(err, ErrBrokenArchive) {
			p.recordFailure()
			return Record{SHA256: sha256}.withBrokenSentinel(), true
		}
		return Record{}, false
	}

	out, err := p.runBackend(ctx, data, p.sizeTargets())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Record{}, false
		}
		p.recordFailure()
		return Record{SHA256: sha256}.withBrokenSentinel(), true
	}

	rec := Record{SHA256: sha256}
	for name, blob := range out {
		rec = rec.WithSlot(name, blob)
	}
	p.recordSuccess()
	return rec, true
}

// generateOneSize is Send's synchronous path: read, decode, resize just
// one size, persist a one-row batch, and return the bytes.
func (p *Pipeline) generateOneSize(ctx context.Context, sha256, size string) ([]byte, error) {
	data, _, err := p.readSource(ctx, sha256)
	if err != nil {
		if errors.Is(err, ErrBrokenArchive) {
			return p.persistBroken(ctx, sha256)
		}
		return nil, err
	}

	sem := NamedSemaphore(GenerationSemaphoreName, int64(concurrencyLimit(p.cfg)))
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, galleryerr.Transient("thumbnail.Send", err)
	}
	defer sem.Release(1)

	target := p.sizeTargets()[size]
	out, err := p.runBackend(ctx, data, map[string]Size{size: target})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, galleryerr.Transient("thumbnail.Send", err)
		}
		return p.persistBroken(ctx, sha256)
	}

	blob := out[size]

	existing, found, err := p.store.Get(ctx, sha256)
	rec := Record{SHA256: sha256}
	if err == nil && found {
		rec = *existing
	}
	rec = rec.WithSlot(size, blob)

	if err := p.store.BulkUpsert(ctx, []Record{rec}); err != nil {
		return nil, err
	}
	p.recordSuccess()
	return blob, nil
}

func (p *Pipeline) persistBroken(ctx context.Context, sha256 string) ([]byte, error) {
	p.recordFailure()
	rec := Record{SHA256: sha256}.withBrokenSentinel()
	if err := p.store.BulkUpsert(ctx, []Record{rec}); err != nil {
		return nil, err
	}
	return rec.Small, nil
}

// readSource resolves sha256 to an on-disk path and returns bytes ready
// to hand to the backend: the raw file for ordinary sources, or the
// first extracted image entry for archives (spec.md §4.4.4).
func (p *Pipeline) readSource(ctx context.Context, sha256 string) ([]byte, string, error) {
	src, err := p.resolver.ResolveSourcePath(ctx, sha256)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(src.AbsolutePath)
	if err != nil {
		return nil, "", galleryerr.Transient("thumbnail.readSource", err)
	}

	if isArchiveExt(p.registry, src.Ext) {
		cover, err := ExtractCoverImage(ctx, data, p.registry)
		if err != nil {
			return nil, src.Ext, err
		}
		return cover, src.Ext, nil
	}
	return data, src.Ext, nil
}

func (p *Pipeline) runBackend(parent context.Context, data []byte, sizes map[string]Size) (map[string][]byte, error) {
	timeout := p.cfg.ThumbnailJobTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return p.backend.Generate(ctx, data, sizes)
}

func (p *Pipeline) sizeTargets() map[string]Size {
	out := make(map[string]Size, len(p.cfg.ThumbnailSizes))
	for name, s := range p.cfg.ThumbnailSizes {
		out[name] = Size{Width: s.Width, Height: s.Height}
	}
	return out
}

func (p *Pipeline) recordSuccess() {
	if p.collector != nil {
		p.collector.RecordThumbnailGenerated()
	}
}

func (p *Pipeline) recordFailure() {
	if p.collector != nil {
		p.collector.RecordThumbnailFailed()
	}
}

func concurrencyLimit(cfg *config.Config) int {
	if cfg.ThumbnailConcurrencyLimit <= 0 {
		return 2
	}
	return cfg.ThumbnailConcurrencyLimit
}
