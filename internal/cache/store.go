package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not present in the store
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the key-value contract the session and attempt layers are built on.
// Values are opaque serialized records; set operations back the per-user
// session index.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}
