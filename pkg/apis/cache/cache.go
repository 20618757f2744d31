package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or its entry has expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque payloads under a key until the given duration passes.
// Set always overwrites an existing entry and resets its expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, content []byte, duration time.Duration) error
}

// Cleaner is implemented by backends that keep expired entries around until
// they are explicitly purged.
type Cleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type RequestOptions struct {
	ForceRefresh bool
	// Duration overrides the default expiry for this request.
	Duration time.Duration
}
