package cache

import (
	"context"
	"errors"
	"time"
)

// KV defines the minimal key-value cache contract with TTL semantics.
// Implementations must be safe for concurrent use by multiple goroutines.
//
// Get returns ErrNotFound for absent keys and ErrExpired for keys whose TTL
// has elapsed; callers treat both as a miss. Put replaces any prior value for
// the key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IsMiss reports whether err means the key holds no live value.
func IsMiss(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired)
}
