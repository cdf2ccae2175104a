package cache

import (
	"context"
	"time"
)

// Store is a small key-value cache with per-key expiration. Backed by Redis
// in deployments; the in-memory store serves development and tests.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
