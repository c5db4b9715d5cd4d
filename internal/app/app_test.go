package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/leonardcser/linhas-cache/internal/config"
	"github.com/leonardcser/linhas-cache/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestOpenStore_Bolt(t *testing.T) {
	cfg := config.Config{
		Backend:    config.BackendBolt,
		CacheDB:    filepath.Join(t.TempDir(), "nested", "cache.bbolt"),
		TTLSeconds: 60,
	}
	kv, closeFn, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	ctx := context.Background()
	if err := kv.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, err := kv.Get(ctx, "k"); err != nil || string(v) != "v" {
		t.Fatalf("get = %q, %v", v, err)
	}
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{
		Backend:    config.BackendRedis,
		TTLSeconds: 60,
		Redis:      config.Redis{URL: "redis://" + mr.Addr()},
	}
	kv, closeFn, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	if err := kv.Put(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("ttl = %s, want configured base", ttl)
	}
}

func TestOpen_BuildsControllerOnConfiguredKey(t *testing.T) {
	cfg := config.Config{
		Backend:     config.BackendBolt,
		CacheDB:     filepath.Join(t.TempDir(), "cache.bbolt"),
		CacheKey:    "test:key",
		TTLSeconds:  60,
		UpstreamURL: "http://127.0.0.1:0/",
	}
	a, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	if a.Lines.Key() != "test:key" {
		t.Fatalf("key = %s", a.Lines.Key())
	}
}
