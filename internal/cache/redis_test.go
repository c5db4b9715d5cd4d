package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedis_PutGetDeleteAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr(), Prefix: "t:"})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer r.Close()

	if _, err := r.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: %v, want ErrNotFound", err)
	}
	if err := r.Put(ctx, "k", []byte(`{"a":1}`), 10*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, _ := mr.Get("t:k"); got != `{"a":1}` {
		t.Fatalf("raw value = %q", got)
	}
	if ttl := mr.TTL("t:k"); ttl != 10*time.Second {
		t.Fatalf("ttl = %s, want 10s", ttl)
	}
	v, err := r.Get(ctx, "k")
	if err != nil || string(v) != `{"a":1}` {
		t.Fatalf("get = %q, %v", v, err)
	}

	mr.FastForward(11 * time.Second)
	if _, err := r.Get(ctx, "k"); !IsMiss(err) {
		t.Fatalf("get after ttl: %v, want miss", err)
	}

	if err := r.Put(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if mr.Exists("t:k") {
		t.Fatalf("key still present after delete")
	}
}

func TestRedis_URLAndDefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOptions{URL: "redis://" + mr.Addr() + "/0", DefaultTTL: time.Hour})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer r.Close()

	if err := r.Put(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Hour {
		t.Fatalf("ttl = %s, want default 1h", ttl)
	}
}

func TestRedis_ServerDownIsNotAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOptions{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	defer r.Close()
	mr.Close()

	_, err = r.Get(ctx, "k")
	if err == nil || IsMiss(err) {
		t.Fatalf("get with server down: %v, want a store error", err)
	}
}
