package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolehub/vie-scolaire-api/pkg/jobs"
)

type refreshMetricsStub struct {
	refreshes atomic.Int32
	failures  atomic.Int32
	lastTable atomic.Value
}

func (m *refreshMetricsStub) RecordRefresh(_ string) {
	m.refreshes.Add(1)
}

func (m *refreshMetricsStub) RecordRefreshFailure(table string) {
	m.failures.Add(1)
	m.lastTable.Store(table)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestDispatchRunsRegisteredRefresher(t *testing.T) {
	listener := NewListener(nil, "rowchange", jobs.QueueConfig{Workers: 1}, nil, nil)

	var mu sync.Mutex
	var seen []ChangeEvent
	listener.Register("grades", func(_ context.Context, event ChangeEvent) error {
		mu.Lock()
		seen = append(seen, event)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.Start(ctx)
	defer listener.Stop()

	require.NoError(t, listener.Dispatch(ChangeEvent{Table: "grades", EventType: "upsert"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	})
	mu.Lock()
	assert.Equal(t, "grades", seen[0].Table)
	assert.Equal(t, "upsert", seen[0].EventType)
	mu.Unlock()
}

func TestDispatchIgnoresUnregisteredTables(t *testing.T) {
	listener := NewListener(nil, "rowchange", jobs.QueueConfig{Workers: 1}, nil, nil)

	var called atomic.Int32
	listener.Register("grades", func(_ context.Context, _ ChangeEvent) error {
		called.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.Start(ctx)
	defer listener.Stop()

	require.NoError(t, listener.Dispatch(ChangeEvent{Table: "unknown_table", EventType: "update"}))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, called.Load())
}

func TestDispatchRetriesFailedRefresh(t *testing.T) {
	listener := NewListener(nil, "rowchange", jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	}, nil, nil)

	var attempts atomic.Int32
	listener.Register("attendance_entries", func(_ context.Context, _ ChangeEvent) error {
		if attempts.Add(1) == 1 {
			return assert.AnError
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.Start(ctx)
	defer listener.Stop()

	require.NoError(t, listener.Dispatch(ChangeEvent{Table: "attendance_entries", EventType: "update"}))

	waitFor(t, func() bool { return attempts.Load() >= 2 })
}

func TestDispatchReportsExhaustedRefreshes(t *testing.T) {
	metrics := &refreshMetricsStub{}
	listener := NewListener(nil, "rowchange", jobs.QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
	}, metrics, nil)

	listener.Register("grades", func(_ context.Context, _ ChangeEvent) error {
		return assert.AnError
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listener.Start(ctx)
	defer listener.Stop()

	require.NoError(t, listener.Dispatch(ChangeEvent{Table: "grades", EventType: "upsert"}))

	waitFor(t, func() bool { return metrics.failures.Load() == 1 })
	assert.Equal(t, int32(1), metrics.refreshes.Load())
	assert.Equal(t, "grades", metrics.lastTable.Load())
}
