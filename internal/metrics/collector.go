package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GalleryCollector tracks activity across C3 (sync), C4 (thumbnails), and
// C5 (invalidator). Components call its Record* methods directly; Collect
// renders the accumulated counters as Prometheus samples on scrape.
type GalleryCollector struct {
	mu sync.Mutex

	syncShortCircuits uint64
	syncFull          uint64
	syncFailures      uint64
	syncDurations     []time.Duration // most recent samples only, see RecordSyncFull

	thumbnailGenerated uint64
	thumbnailFailed    uint64
	thumbnailQueueLen  int

	invalidatorFlushes   uint64
	invalidatorCoalesced uint64

	syncDurationDesc       *prometheus.Desc
	syncShortCircuitDesc   *prometheus.Desc
	syncFullDesc           *prometheus.Desc
	syncFailureDesc        *prometheus.Desc
	thumbnailGeneratedDesc *prometheus.Desc
	thumbnailFailedDesc    *prometheus.Desc
	thumbnailQueueDesc     *prometheus.Desc
	invalidatorFlushDesc   *prometheus.Desc
	invalidatorDedupDesc   *prometheus.Desc
}

func NewGalleryCollector() *GalleryCollector {
	return &GalleryCollector{
		syncDurationDesc: prometheus.NewDesc(
			"gallery_sync_duration_seconds_avg", "Average duration of the most recent full directory syncs (up to 256 samples).", nil, nil),
		syncShortCircuitDesc: prometheus.NewDesc(
			"gallery_sync_short_circuits_total", "Directory syncs that short-circuited because the cache-tracking entry was fresh.", nil, nil),
		syncFullDesc: prometheus.NewDesc(
			"gallery_sync_full_total", "Directory syncs that performed a full filesystem reconciliation.", nil, nil),
		syncFailureDesc: prometheus.NewDesc(
			"gallery_sync_failures_total", "Directory syncs aborted due to AccessDenied or NotFound.", nil, nil),
		thumbnailGeneratedDesc: prometheus.NewDesc(
			"gallery_thumbnail_generated_total", "Thumbnail slots successfully generated.", nil, nil),
		thumbnailFailedDesc: prometheus.NewDesc(
			"gallery_thumbnail_failed_total", "Thumbnail generation attempts that produced the broken-media sentinel.", nil, nil),
		thumbnailQueueDesc: prometheus.NewDesc(
			"gallery_thumbnail_queue_depth", "Number of SHAs currently queued for thumbnail generation.", nil, nil),
		invalidatorFlushDesc: prometheus.NewDesc(
			"gallery_invalidator_flushes_total", "Coalescing-buffer flushes performed by the invalidator.", nil, nil),
		invalidatorDedupDesc: prometheus.NewDesc(
			"gallery_invalidator_coalesced_events_total", "Filesystem events absorbed into an already-buffered directory entry.", nil, nil),
	}
}

func (c *GalleryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.syncDurationDesc
	ch <- c.syncShortCircuitDesc
	ch <- c.syncFullDesc
	ch <- c.syncFailureDesc
	ch <- c.thumbnailGeneratedDesc
	ch <- c.thumbnailFailedDesc
	ch <- c.thumbnailQueueDesc
	ch <- c.invalidatorFlushDesc
	ch <- c.invalidatorDedupDesc
}

func (c *GalleryCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var avg time.Duration
	if n := len(c.syncDurations); n > 0 {
		var total time.Duration
		for _, d := range c.syncDurations {
			total += d
		}
		avg = total / time.Duration(n)
	}

	ch <- prometheus.MustNewConstMetric(c.syncDurationDesc, prometheus.GaugeValue, avg.Seconds())
	ch <- prometheus.MustNewConstMetric(c.syncShortCircuitDesc, prometheus.CounterValue, float64(c.syncShortCircuits))
	ch <- prometheus.MustNewConstMetric(c.syncFullDesc, prometheus.CounterValue, float64(c.syncFull))
	ch <- prometheus.MustNewConstMetric(c.syncFailureDesc, prometheus.CounterValue, float64(c.syncFailures))
	ch <- prometheus.MustNewConstMetric(c.thumbnailGeneratedDesc, prometheus.CounterValue, float64(c.thumbnailGenerated))
	ch <- prometheus.MustNewConstMetric(c.thumbnailFailedDesc, prometheus.CounterValue, float64(c.thumbnailFailed))
	ch <- prometheus.MustNewConstMetric(c.thumbnailQueueDesc, prometheus.GaugeValue, float64(c.thumbnailQueueLen))
	ch <- prometheus.MustNewConstMetric(c.invalidatorFlushDesc, prometheus.CounterValue, float64(c.invalidatorFlushes))
	ch <- prometheus.MustNewConstMetric(c.invalidatorDedupDesc, prometheus.CounterValue, float64(c.invalidatorCoalesced))
}

// maxSyncDurationSamples bounds syncDurations (see RecordSyncFull), avoiding unbounded growth for long-running processes.
const maxSyncDurationSamples = 256

func (c *GalleryCollector) RecordSyncShortCircuit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncShortCircuits++
}

func (c *GalleryCollector) RecordSyncFull(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncFull++
	c.syncDurations = append(c.syncDurations, d)
	if len(c.syncDurations) > maxSyncDurationSamples {
		c.syncDurations = c.syncDurations[len(c.syncDurations)-maxSyncDurationSamples:]
	}
}

func (c *GalleryCollector) RecordSyncFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncFailures++
}

func (c *GalleryCollector) RecordThumbnailGenerated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbnailGenerated++
}

func (c *GalleryCollector) RecordThumbnailFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbnailFailed++
}

func (c *GalleryCollector) SetThumbnailQueueDepth(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbnailQueueLen = n
}

func (c *GalleryCollector) RecordInvalidatorFlush(directoryCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidatorFlushes++
	_ = directoryCount
}

func (c *GalleryCollector) RecordInvalidatorCoalesced(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidatorCoalesced += uint64(n)
}
