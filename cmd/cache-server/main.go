package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/leonardcser/linhas-cache/internal/app"
	"github.com/leonardcser/linhas-cache/internal/cache"
	"github.com/leonardcser/linhas-cache/internal/config"
	"github.com/leonardcser/linhas-cache/internal/logger"
)

const purgeEvery = 10 * time.Minute

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}
	// The daemon owns the storage; it cannot proxy to itself.
	if cfg.Backend == config.BackendDaemon {
		cfg.Backend = config.BackendBolt
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Errorf("open store: %v", err)
		panic(err)
	}
	defer closeStore()

	sock := cfg.CacheSock
	// Ensure socket dir exists and remove stale socket
	_ = os.MkdirAll(filepath.Dir(sock), 0o755)
	_ = os.Remove(sock)

	l, err := net.Listen("unix", sock)
	if err != nil {
		logger.Errorf("listen %s: %v", sock, err)
		panic(err)
	}
	_ = os.Chmod(sock, 0o600)
	logger.Infof("cache daemon listening on %s (backend %s)", sock, cfg.Backend)

	if s, ok := kv.(*cache.Store); ok {
		go purgeLoop(ctx, s)
	}
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()
	if err := cache.Serve(l, kv); err != nil {
		logger.Errorf("serve: %v", err)
	}
}

// purgeLoop periodically drops expired entries from the bolt file.
func purgeLoop(ctx context.Context, s *cache.Store) {
	ticker := time.NewTicker(purgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Purge(); err != nil {
				logger.Warnf("purge: %v", err)
			} else if n > 0 {
				logger.Infof("purged %d expired entries", n)
			}
		}
	}
}
