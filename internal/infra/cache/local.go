package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const localCleanupInterval = 10 * time.Minute

// LocalCache keeps entries in process memory. Used when no Redis is configured.
type LocalCache struct {
	c *gocache.Cache
}

func NewLocalCache() *LocalCache {
	return &LocalCache{c: gocache.New(DefaultTTL, localCleanupInterval)}
}

func (l *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return b, nil
}

func (l *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.c.Set(key, value, ttl)
	return nil
}

func (l *LocalCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.c.Delete(k)
	}
	return nil
}

func (l *LocalCache) Ping(context.Context) error {
	return nil
}
