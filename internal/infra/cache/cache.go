package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long entity reads stay cached.
const DefaultTTL = time.Hour

// ErrKeyNotFound is returned by Get on a miss.
var ErrKeyNotFound = errors.New("cache: key not found")

// Cache is a byte-string store with per-key expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

const (
	messagePrefix = "message"
	projectPrefix = "project"
)

func MessageKey(id int64) string {
	return fmt.Sprintf("%s:%d", messagePrefix, id)
}

func MessageUserKey(userID int64) string {
	return fmt.Sprintf("%s:user:%d", messagePrefix, userID)
}

func ProjectKey(id int64) string {
	return fmt.Sprintf("%s:%d", projectPrefix, id)
}

func ProjectUserKey(userID int64) string {
	return fmt.Sprintf("%s:user:%d", projectPrefix, userID)
}
