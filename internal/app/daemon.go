package app

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/leonardcser/linhas-cache/internal/cache"
	"github.com/leonardcser/linhas-cache/internal/logger"
)

const daemonBinary = "linhas-cache"

// connectDaemon connects to the cache daemon, starting it if needed.
func connectDaemon(ctx context.Context, sock string) (*cache.Client, error) {
	logger.Infof("Attempting to connect to cache daemon at %s", sock)
	client := cache.NewClient(sock)
	err := client.Probe(ctx)
	if err == nil {
		logger.Infof("Successfully connected to cache daemon")
		return client, nil
	}
	logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
	if startErr := startCacheDaemon(); startErr != nil {
		logger.Errorf("Failed to start cache daemon: %v", startErr)
	} else {
		logger.Infof("Cache daemon started successfully")
	}
	// wait for socket to appear
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err = client.Probe(ctx); err == nil {
			logger.Infof("Successfully connected to cache daemon")
			return client, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	logger.Errorf("Failed to connect to cache daemon after startup attempt: %v", err)
	return nil, err
}

func startCacheDaemon() error {
	// 1) Try cache binary next to this executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}
	// 2) Try PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return spawn(path)
	}
	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Env = os.Environ()
	return cmd.Start()
}
