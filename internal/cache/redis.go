package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements KV on top of a Redis server. Expiry is delegated to Redis
// itself, so an expired key reads as ErrNotFound.
type Redis struct {
	rdb        redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

var _ KV = (*Redis)(nil)

// RedisOptions mirrors the connection settings accepted by the service.
// URL wins over Addr when both are set.
type RedisOptions struct {
	URL      string
	Addr     string
	DB       int
	Username string
	Password string
	// Prefix is prepended to every key.
	Prefix     string
	DefaultTTL time.Duration
}

// NewRedis dials a Redis client from opts and verifies it with PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	var ro *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, err
		}
		ro = parsed
	} else {
		ro = &redis.Options{
			Addr:     opts.Addr,
			DB:       opts.DB,
			Username: opts.Username,
			Password: opts.Password,
		}
	}
	rdb := redis.NewClient(ro)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisFromClient(rdb, opts.Prefix, opts.DefaultTTL), nil
}

// NewRedisFromClient wraps an existing client. The caller keeps ownership of
// the client unless it calls Close on the returned store.
func NewRedisFromClient(rdb redis.UniversalClient, prefix string, defaultTTL time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, defaultTTL: defaultTTL}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Put uses SET with an expiry; ttl <= 0 falls back to the default TTL and a
// zero default stores the value without expiry.
func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.rdb.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.rdb.Close() }
