package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type stubCache struct {
	values map[string][]byte
	err    error
}

func (s *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	if s.err != nil {
		return s.err
	}
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	return nil
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(&stubCache{values: map[string][]byte{}}, metrics)
	ctx := context.Background()

	var out int
	err := cache.Get(ctx, "grades:summary:class1:", &out)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "grades:summary:class1:", 42, time.Minute))
	require.NoError(t, cache.Get(ctx, "grades:summary:class1:", &out))
	assert.Equal(t, 42, out)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.cacheHits), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.cacheMisses), 1e-9)
	assert.InDelta(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio), 1e-9)
}

func TestCacheServiceSkipsInfrastructureErrors(t *testing.T) {
	metrics := NewMetricsService()
	cache := NewCacheService(&stubCache{err: assert.AnError}, metrics)

	var out int
	err := cache.Get(context.Background(), "attendance:stats:rec1", &out)
	require.Error(t, err)

	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.cacheHits), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.cacheMisses), 1e-9)
}
