package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"outreach_scheduler/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Aside couples a Cache with the TTL and logger used by the cache-aside helpers.
// Cache failures are logged and treated as misses; they never reach the caller.
type Aside struct {
	cache Cache
	ttl   time.Duration
	log   *logrus.Entry
}

func NewAside(c Cache, ttl time.Duration, log *logrus.Entry) *Aside {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Aside{cache: c, ttl: ttl, log: log}
}

// GetOrLoad returns the cached value for key or calls load and caches its result.
func GetOrLoad[T any](ctx context.Context, a *Aside, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	raw, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		jsonErr := json.Unmarshal(raw, &cached)
		if jsonErr == nil {
			metrics.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()
			return cached, nil
		}
		a.log.WithError(jsonErr).WithField("key", key).Warn("Discarding undecodable cache entry")
		a.Invalidate(ctx, key)
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	case errors.Is(err, ErrKeyNotFound):
		metrics.CacheRequests.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheRequests.WithLabelValues(metrics.CacheError).Inc()
		a.log.WithError(err).WithField("key", key).Warn("Cache read failed, falling back to store")
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	raw, err = json.Marshal(value)
	if err != nil {
		a.log.WithError(err).WithField("key", key).Warn("Could not encode value for cache")
		return value, nil
	}
	if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
		a.log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
	return value, nil
}

// Invalidate deletes keys. Errors are logged only.
func (a *Aside) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := a.cache.Del(ctx, keys...); err != nil {
		a.log.WithError(err).WithField("keys", keys).Warn("Cache invalidation failed")
	}
}
