package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/leonardcser/linhas-cache/internal/lines"
	"github.com/leonardcser/linhas-cache/internal/upstream"
)

// Cache backends selectable through LINHAS_CACHE_BACKEND.
const (
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendDaemon = "daemon"
)

type Config struct {
	UpstreamURL  string
	CacheKey     string
	TTLSeconds   int
	FetchTimeout time.Duration
	Retries      int
	RetryBackoff time.Duration
	PrewarmCron  string
	Location     *time.Location
	HTTPAddr     string

	Backend   string
	CacheDB   string
	CacheSock string
	Redis     Redis
}

// Redis holds the connection settings; URL wins over Host/Port.
type Redis struct {
	URL      string
	Host     string
	Port     int
	DB       int
	Username string
	Password string
}

func (r Redis) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) { return load(os.Getenv) }

func load(getenv func(string) string) (Config, error) {
	env := func(k, d string) string { return defaultString(getenv(k), d) }
	c := Config{
		UpstreamURL: env("LINHAS_UPSTREAM_URL", upstream.DefaultURL),
		CacheKey:    env("LINHAS_CACHE_KEY", lines.DefaultKey),
		PrewarmCron: env("LINHAS_PREWARM_CRON", lines.DefaultPrewarmSchedule),
		HTTPAddr:    env("LINHAS_HTTP_ADDR", ":3000"),
		Backend:     env("LINHAS_CACHE_BACKEND", BackendBolt),
		CacheDB:     env("LINHAS_CACHE_DB", DefaultDBPath()),
		CacheSock:   env("LINHAS_CACHE_SOCK", DefaultSocketPath()),
		Redis: Redis{
			URL:      getenv("REDIS_URL"),
			Host:     env("REDIS_HOST", "localhost"),
			Username: getenv("REDIS_USERNAME"),
			Password: getenv("REDIS_PASSWORD"),
		},
	}

	var err error
	if c.TTLSeconds, err = intVar(getenv, "LINHAS_TTL_SECONDS", lines.DefaultTTLSeconds); err != nil {
		return Config{}, err
	}
	if c.TTLSeconds <= 0 {
		return Config{}, fmt.Errorf("LINHAS_TTL_SECONDS: must be positive, got %d", c.TTLSeconds)
	}
	if c.Retries, err = intVar(getenv, "LINHAS_RETRIES", lines.DefaultRetries); err != nil {
		return Config{}, err
	}
	if c.Retries < 0 {
		return Config{}, fmt.Errorf("LINHAS_RETRIES: must not be negative, got %d", c.Retries)
	}
	if c.FetchTimeout, err = durationVar(getenv, "LINHAS_FETCH_TIMEOUT", lines.DefaultTimeout); err != nil {
		return Config{}, err
	}
	if c.RetryBackoff, err = durationVar(getenv, "LINHAS_RETRY_BACKOFF", lines.DefaultBackoff); err != nil {
		return Config{}, err
	}
	if c.Redis.Port, err = intVar(getenv, "REDIS_PORT", 6379); err != nil {
		return Config{}, err
	}
	if c.Redis.DB, err = intVar(getenv, "REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	c.Location = time.Local
	if tz := getenv("LINHAS_TZ"); tz != "" {
		if c.Location, err = time.LoadLocation(tz); err != nil {
			return Config{}, fmt.Errorf("LINHAS_TZ: %w", err)
		}
	}
	if _, err := lines.ParseSchedule(c.PrewarmCron); err != nil {
		return Config{}, fmt.Errorf("LINHAS_PREWARM_CRON: %w", err)
	}
	switch c.Backend {
	case BackendBolt, BackendRedis, BackendDaemon:
	default:
		return Config{}, fmt.Errorf("LINHAS_CACHE_BACKEND: unknown backend %q", c.Backend)
	}
	return c, nil
}

func intVar(getenv func(string) string, key string, d int) (int, error) {
	v := getenv(key)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationVar(getenv func(string) string, key string, d time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return d, nil
	}
	n, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, v)
	}
	return n, nil
}

func DefaultSocketPath() string {
	return filepath.Join(cacheDir(), "cache.sock")
}

func DefaultDBPath() string {
	return filepath.Join(cacheDir(), "cache.bbolt")
}

func cacheDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "linhas")
}

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
