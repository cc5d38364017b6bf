package service

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/ecolehub/vie-scolaire-api/pkg/errors"
)

type cacheRecorder interface {
	RecordCacheOperation(hit bool)
}

// CacheService decorates an aggregate cache with hit/miss instrumentation.
// Lookups that fail for reasons other than a miss (redis down, bad payload)
// are not counted either way, so the hit ratio reflects cache behaviour, not
// infrastructure health.
type CacheService struct {
	inner   aggregateCache
	metrics cacheRecorder
}

// NewCacheService wraps a cache with metrics reporting.
func NewCacheService(inner aggregateCache, metrics cacheRecorder) *CacheService {
	return &CacheService{inner: inner, metrics: metrics}
}

// Get delegates to the underlying cache and records the hit or miss.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	err := s.inner.Get(ctx, key, dest)
	if s.metrics != nil {
		switch {
		case err == nil:
			s.metrics.RecordCacheOperation(true)
		case errors.Is(err, appErrors.ErrCacheMiss):
			s.metrics.RecordCacheOperation(false)
		}
	}
	return err
}

// Set delegates to the underlying cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.inner.Set(ctx, key, value, ttl)
}
