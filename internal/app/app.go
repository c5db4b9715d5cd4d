// Package app wires configuration, the cache backend and the upstream source
// into a ready lines.Controller for the binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/leonardcser/linhas-cache/internal/cache"
	"github.com/leonardcser/linhas-cache/internal/config"
	"github.com/leonardcser/linhas-cache/internal/lines"
	"github.com/leonardcser/linhas-cache/internal/logger"
	"github.com/leonardcser/linhas-cache/internal/upstream"
)

type App struct {
	Config config.Config
	Store  cache.KV
	Lines  *lines.Controller

	closeStore func() error
}

// Open connects the configured cache backend and builds the controller.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	kv, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	retries := cfg.Retries
	if retries == 0 {
		// lines.New reads zero as "default"; negative disables retries.
		retries = -1
	}
	ctrl := lines.New(kv, upstream.NewHTTPSource(cfg.UpstreamURL, nil), lines.Options{
		Key:            cfg.CacheKey,
		BaseTTLSeconds: cfg.TTLSeconds,
		Timeout:        cfg.FetchTimeout,
		Retries:        retries,
		Backoff:        cfg.RetryBackoff,
	})
	logger.Infof("bus lines controller ready: key=%s upstream=%s backend=%s", cfg.CacheKey, cfg.UpstreamURL, cfg.Backend)
	return &App{Config: cfg, Store: kv, Lines: ctrl, closeStore: closeStore}, nil
}

func (a *App) Close() error {
	if a == nil || a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// OpenStore opens the cache backend selected by cfg.Backend. The returned
// func releases it.
func OpenStore(ctx context.Context, cfg config.Config) (cache.KV, func() error, error) {
	defaultTTL := time.Duration(cfg.TTLSeconds) * time.Second
	switch cfg.Backend {
	case config.BackendRedis:
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr(),
			DB:         cfg.Redis.DB,
			Username:   cfg.Redis.Username,
			Password:   cfg.Redis.Password,
			DefaultTTL: defaultTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return r, r.Close, nil
	case config.BackendDaemon:
		c, err := connectDaemon(ctx, cfg.CacheSock)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.CacheDB), 0o755); err != nil {
			return nil, nil, err
		}
		s, err := cache.Open(cfg.CacheDB, cache.Options{Bucket: "linhas", DefaultTTL: defaultTTL})
		if err != nil {
			return nil, nil, fmt.Errorf("open cache db %s: %w", cfg.CacheDB, err)
		}
		return s, s.Close, nil
	}
}
