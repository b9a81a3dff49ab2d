package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementFeedsFetched()
			m.IncrementCacheMisses()
		}()
	}
	wg.Wait()

	m.AddEntriesDropped(3)
	m.AddDuplicatesMerged(2)
	m.IncrementFeedsFailed()

	stats := m.GetStats()
	assert.EqualValues(t, 50, stats["feeds_fetched"])
	assert.EqualValues(t, 50, stats["cache_misses"])
	assert.EqualValues(t, 3, stats["entries_dropped"])
	assert.EqualValues(t, 2, stats["duplicates_merged"])
	assert.EqualValues(t, 1, stats["feeds_failed"])
}

func TestMetrics_HealthAndTiming(t *testing.T) {
	m := New()
	assert.True(t, m.GetStats()["is_healthy"].(bool))

	m.SetError("all sources failed for US:Top")
	stats := m.GetStats()
	assert.False(t, stats["is_healthy"].(bool))
	assert.Equal(t, "all sources failed for US:Top", stats["last_error"])

	m.SetLastRun()
	assert.True(t, m.GetStats()["is_healthy"].(bool))

	m.RecordProcessingTime(100 * time.Millisecond)
	m.RecordProcessingTime(300 * time.Millisecond)
	assert.EqualValues(t, 200, m.GetStats()["average_processing_time_ms"])
}
