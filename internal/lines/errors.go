package lines

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is what the read path returns when the dataset is
	// neither cached nor obtainable from upstream right now. Nothing is
	// cached on this path, so the next read retries upstream.
	ErrUnavailable = errors.New("lines: dataset temporarily unavailable")

	// ErrUpstreamUnavailable matches every *UpstreamError.
	ErrUpstreamUnavailable = errors.New("lines: upstream unavailable")

	// ErrUpstreamTimeout marks an attempt cut off by the per-attempt deadline.
	// It is one failed attempt like any other.
	ErrUpstreamTimeout = errors.New("lines: upstream timeout")

	// ErrCacheStore matches every *StoreError.
	ErrCacheStore = errors.New("lines: cache store failure")
)

// UpstreamError is returned once every fetch attempt has failed. Its message
// carries the last attempt's error.
type UpstreamError struct {
	Attempts int
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream unavailable after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// StoreError wraps a failing cache store operation. Store failures are
// reported as-is and never retried here.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("cache store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrCacheStore }
