package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.bbolt"), Options{Bucket: "test"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_PutGetDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, "k", []byte("v1"), time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2"), time.Hour); err != nil {
		t.Fatalf("put again: %v", err)
	}
	v, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "v2" {
		t.Fatalf("get = %q, want last write", v)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !IsMiss(err) {
		t.Fatalf("get after delete: %v, want miss", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Put(ctx, "k", []byte("v"), 12*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, err := s.Lookup(ctx, "k")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if want := now.Add(12 * time.Hour); !e.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %s, want %s", e.ExpiresAt, want)
	}

	now = now.Add(12*time.Hour + time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrExpired) {
		t.Fatalf("get after ttl: %v, want ErrExpired", err)
	}
	n, err := s.Purge()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after purge: %v, want ErrNotFound", err)
	}
}

func TestStore_DefaultTTLAndNoExpiry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, err := s.Lookup(ctx, "forever")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !e.ExpiresAt.IsZero() {
		t.Fatalf("expected no expiry without default TTL, got %s", e.ExpiresAt)
	}

	s.defaultTTL = time.Minute
	if err := s.Put(ctx, "defaulted", []byte("v"), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, _ = s.Lookup(ctx, "defaulted")
	if e.ExpiresAt.IsZero() {
		t.Fatalf("expected default TTL to apply")
	}
}
