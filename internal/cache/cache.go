package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store provides a persistent KV cache with TTL semantics backed by bbolt.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// DefaultTTL is used when Put is called with ttl <= 0.
	DefaultTTL time.Duration
}

var (
	ErrNotFound = errors.New("cache: not found")
	ErrExpired  = errors.New("cache: expired")
)

// Entry is a raw stored value together with its absolute expiry.
// A zero ExpiresAt means the value never expires.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

var _ KV = (*Store)(nil)

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, bucket: bucket, defaultTTL: opts.DefaultTTL, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores value with an absolute expiration computed as now+ttl.
// If ttl <= 0, DefaultTTL is used; if DefaultTTL <= 0, the item never expires.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	buf := encodeEntry(value, expiresAt)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
}

// Get returns cached value if present and not expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	e, err := s.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if !e.ExpiresAt.IsZero() && s.now().After(e.ExpiresAt) {
		return nil, ErrExpired
	}
	return e.Value, nil
}

// Lookup returns the stored entry for key regardless of expiry.
func (s *Store) Lookup(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	var (
		e      Entry
		exists bool
	)
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		exists = true
		e = decodeEntry(v)
		return nil
	}); err != nil {
		return Entry{}, err
	}
	if !exists {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Purge removes every expired entry and returns how many were dropped.
func (s *Store) Purge() (int, error) {
	now := s.now()
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			e := decodeEntry(v)
			if !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(stale)
		return nil
	})
	return n, err
}

// Layout: 8 bytes big endian expiresAt (unix nanos, 0 = never) || raw value
func encodeEntry(value []byte, expiresAt time.Time) []byte {
	var at int64
	if !expiresAt.IsZero() {
		at = expiresAt.UnixNano()
	}
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(at))
	copy(buf[8:], value)
	return buf
}

func decodeEntry(v []byte) Entry {
	var e Entry
	if len(v) < 8 {
		return e
	}
	if at := int64(binary.BigEndian.Uint64(v[:8])); at > 0 {
		e.ExpiresAt = time.Unix(0, at)
	}
	e.Value = append([]byte(nil), v[8:]...)
	return e
}
