package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCacheOperationUpdatesCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheOperation(true)
	m.RecordCacheOperation(false)
	m.RecordCacheOperation(false)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.cacheHits), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.cacheMisses), 1e-9)
	assert.InDelta(t, 1.0/3.0, testutil.ToFloat64(m.cacheHitRatio), 1e-9)
}

func TestRecordRefreshFailureCountsPerTable(t *testing.T) {
	m := NewMetricsService()

	m.RecordRefresh("grades")
	m.RecordRefreshFailure("grades")
	m.RecordRefreshFailure("grades")
	m.RecordRefreshFailure("attendance_entries")

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.refreshTotal.WithLabelValues("grades")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.refreshFailures.WithLabelValues("grades")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.refreshFailures.WithLabelValues("attendance_entries")), 1e-9)
}
