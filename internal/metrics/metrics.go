// Package metrics provides process-wide mirroring counters.
package metrics

import (
	"sync"
	"time"
)

// Collector accumulates mirroring activity counters. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	startTime time.Time

	batchesRun         int64
	articlesMirrored   int64
	articlesFailed     int64
	articlesSkipped    int64
	resourcesHarvested int64
	bytesStored        int64
	sessionExpiries    int64
}

// Snapshot is a point-in-time copy of the collector's counters.
type Snapshot struct {
	BatchesRun         int64 `json:"batches_run"`
	ArticlesMirrored   int64 `json:"articles_mirrored"`
	ArticlesFailed     int64 `json:"articles_failed"`
	ArticlesSkipped    int64 `json:"articles_skipped"`
	ResourcesHarvested int64 `json:"resources_harvested"`
	BytesStored        int64 `json:"bytes_stored"`
	SessionExpiries    int64 `json:"session_expiries"`
	UptimeSeconds      int64 `json:"uptime_seconds"`
}

// NewCollector creates a collector with the uptime clock started.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordBatch folds one finished batch into the counters.
func (c *Collector) RecordBatch(completed, failed, skipped int, sessionExpired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batchesRun++
	c.articlesMirrored += int64(completed)
	c.articlesFailed += int64(failed)
	c.articlesSkipped += int64(skipped)
	if sessionExpired {
		c.sessionExpiries++
	}
}

// RecordArticleStored records one stored document and its harvested resources.
func (c *Collector) RecordArticleStored(bytes int64, harvested int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bytesStored += bytes
	c.resourcesHarvested += int64(harvested)
}

// Stats returns a copy of the current counters.
func (c *Collector) Stats() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		BatchesRun:         c.batchesRun,
		ArticlesMirrored:   c.articlesMirrored,
		ArticlesFailed:     c.articlesFailed,
		ArticlesSkipped:    c.articlesSkipped,
		ResourcesHarvested: c.resourcesHarvested,
		BytesStored:        c.bytesStored,
		SessionExpiries:    c.sessionExpiries,
		UptimeSeconds:      int64(time.Since(c.startTime).Seconds()),
	}
}
