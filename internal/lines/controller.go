package lines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/linhas-cache/internal/cache"
	"github.com/leonardcser/linhas-cache/internal/logger"
)

const (
	DefaultKey        = "mogi:linhas:v1"
	DefaultTTLSeconds = 60 * 60 * 12
	DefaultTimeout    = 30 * time.Second
	DefaultRetries    = 1
	DefaultBackoff    = 500 * time.Millisecond
)

// Dataset is the upstream document exactly as received.
type Dataset = json.RawMessage

// Source yields the full dataset in a single attempt. Implementations must
// honor ctx cancellation; retries and timeouts are applied by the Controller.
type Source interface {
	Fetch(ctx context.Context) (json.RawMessage, error)
}

// Attempt describes one upstream fetch made by FetchWithRetry.
type Attempt struct {
	Number    int
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

type Options struct {
	// Key is the cache key the dataset lives under.
	Key            string
	BaseTTLSeconds int
	// Timeout bounds each upstream attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first one fails.
	Retries int
	Backoff time.Duration
	// OnAttempt, if set, observes every finished upstream attempt.
	OnAttempt func(Attempt)
	// Rand overrides the jitter source; it must return values in [0, 1).
	Rand func() float64
}

// Controller serves the single cached dataset with cache-aside reads and
// keeps it warm through prewarm runs.
type Controller struct {
	kv   cache.KV
	src  Source
	opts Options
	sf   singleflight.Group
}

// New returns a Controller. Zero-valued options take the package defaults;
// a negative Retries disables retrying.
func New(kv cache.KV, src Source, opts Options) *Controller {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.BaseTTLSeconds <= 0 {
		opts.BaseTTLSeconds = DefaultTTLSeconds
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	} else if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	return &Controller{kv: kv, src: src, opts: opts}
}

func (c *Controller) Key() string { return c.opts.Key }

// GetDataset returns the cached dataset, fetching and caching it on a miss.
// When upstream cannot be reached it returns ErrUnavailable and leaves the
// cache empty. Store read failures are returned as *StoreError.
func (c *Controller) GetDataset(ctx context.Context) (Dataset, error) {
	t0 := time.Now()

	v, err := c.kv.Get(ctx, c.opts.Key)
	if err == nil {
		logger.Debugf("CACHE HIT (%d ms) -> %s", time.Since(t0).Milliseconds(), c.opts.Key)
		return Dataset(v), nil
	}
	if !cache.IsMiss(err) {
		return nil, &StoreError{Op: "get", Key: c.opts.Key, Err: err}
	}

	fresh, err := c.refresh(ctx)
	if fresh == nil {
		logger.Errorf("fetching bus lines: %v", err)
		return nil, ErrUnavailable
	}
	if err != nil {
		// Upstream answered but the write failed; serve the data uncached.
		logger.Errorf("caching bus lines: %v", err)
	}
	logger.Debugf("CACHE MISS+FETCH (%d ms). Set -> %s", time.Since(t0).Milliseconds(), c.opts.Key)
	return fresh, nil
}

// FetchWithRetry fetches the dataset from upstream, retrying failed attempts
// after a fixed backoff. Each attempt is cut off after the configured
// timeout. When every attempt fails the result is an *UpstreamError.
func (c *Controller) FetchWithRetry(ctx context.Context) (Dataset, error) {
	total := c.opts.Retries + 1
	var lastErr error
	made := 0
	for n := 1; n <= total; n++ {
		made = n
		a := Attempt{Number: n, StartedAt: time.Now()}
		data, err := c.fetchOnce(ctx)
		a.Duration, a.Err = time.Since(a.StartedAt), err
		if c.opts.OnAttempt != nil {
			c.opts.OnAttempt(a)
		}
		if err == nil {
			return data, nil
		}
		lastErr = err
		logger.Warnf("fetch attempt %d/%d failed: %v", n, total, err)
		if n == total {
			break
		}
		if err := sleep(ctx, c.opts.Backoff); err != nil {
			lastErr = err
			break
		}
	}
	return nil, &UpstreamError{Attempts: made, Err: lastErr}
}

func (c *Controller) fetchOnce(ctx context.Context) (Dataset, error) {
	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	data, err := c.src.Fetch(actx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrUpstreamTimeout, c.opts.Timeout, err)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

var errEmptyBody = errors.New("empty response body")

// Prewarm fetches the dataset and overwrites the cache entry. On failure the
// existing entry, if any, is left as it was.
func (c *Controller) Prewarm(ctx context.Context) error {
	fresh, err := c.refresh(ctx)
	if err != nil {
		if fresh == nil {
			logger.Warnf("prewarm of %s failed, keeping current entry: %v", c.opts.Key, err)
		} else {
			logger.Errorf("prewarm of %s fetched data but could not store it: %v", c.opts.Key, err)
		}
		return err
	}
	logger.Infof("bus lines cache refreshed (prewarm) -> %s", c.opts.Key)
	return nil
}

// StartupPrewarm warms the cache once before traffic is served. Failures
// are logged and never stop startup.
func (c *Controller) StartupPrewarm(ctx context.Context) {
	if err := c.Prewarm(ctx); err != nil {
		logger.Warnf("startup prewarm failed: %v", err)
		return
	}
	logger.Infof("cache prewarmed at startup")
}

func (c *Controller) scheduledPrewarm() {
	_ = c.Prewarm(context.Background())
}

// Invalidate deletes the cache entry. Deleting an absent entry succeeds.
func (c *Controller) Invalidate(ctx context.Context) error {
	if err := c.kv.Delete(ctx, c.opts.Key); err != nil {
		return &StoreError{Op: "delete", Key: c.opts.Key, Err: err}
	}
	logger.Infof("cache invalidated -> %s", c.opts.Key)
	return nil
}

// TTL returns a jittered TTL around the configured base.
func (c *Controller) TTL() time.Duration {
	return time.Duration(jitterSeconds(c.opts.BaseTTLSeconds, c.opts.Rand())) * time.Second
}

type flight struct {
	data Dataset
	err  error
}

// refresh runs fetch-and-store under a single flight per cache key, so
// concurrent misses and a prewarm firing at the same moment share one
// upstream fetch and one write. The flight is detached from the caller's
// cancellation since other callers may be waiting on it.
//
// A nil Dataset means the fetch failed. A non-nil Dataset with an error means
// the fetch succeeded but the write did not.
func (c *Controller) refresh(ctx context.Context) (Dataset, error) {
	fctx := context.WithoutCancel(ctx)
	v, _, _ := c.sf.Do(c.opts.Key, func() (any, error) {
		data, err := c.FetchWithRetry(fctx)
		if err != nil {
			return flight{err: err}, nil
		}
		if err := c.kv.Put(fctx, c.opts.Key, data, c.TTL()); err != nil {
			return flight{data: data, err: &StoreError{Op: "set", Key: c.opts.Key, Err: err}}, nil
		}
		return flight{data: data}, nil
	})
	f := v.(flight)
	return f.data, f.err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
