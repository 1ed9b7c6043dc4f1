package metrics_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/gomirror/internal/metrics"
)

func TestCollectorRecordBatch(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordBatch(3, 1, 2, false)
	c.RecordBatch(0, 4, 0, true)

	snap := c.Stats()
	assert.Equal(t, int64(2), snap.BatchesRun)
	assert.Equal(t, int64(3), snap.ArticlesMirrored)
	assert.Equal(t, int64(5), snap.ArticlesFailed)
	assert.Equal(t, int64(2), snap.ArticlesSkipped)
	assert.Equal(t, int64(1), snap.SessionExpiries)
}

func TestCollectorRecordArticleStored(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordArticleStored(1024, 3)
	c.RecordArticleStored(512, 0)

	snap := c.Stats()
	assert.Equal(t, int64(1536), snap.BytesStored)
	assert.Equal(t, int64(3), snap.ResourcesHarvested)
}

func TestCollectorConcurrentUpdates(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordBatch(1, 0, 0, false)
			c.RecordArticleStored(10, 1)
		}()
	}
	wg.Wait()

	snap := c.Stats()
	assert.Equal(t, int64(50), snap.BatchesRun)
	assert.Equal(t, int64(50), snap.ArticlesMirrored)
	assert.Equal(t, int64(500), snap.BytesStored)
	assert.Equal(t, int64(50), snap.ResourcesHarvested)
}
