// Package cache provides content-addressed caching for pipeline stages.
//
// Keys are derived from input hashes plus the options that shaped the stage,
// so a changed tolerance or wall thickness misses cleanly while an identical
// rerun skips contour tracing, profile composition or solid building. Backends:
// a file cache for CLI runs, redis for the HTTP server, and a null cache for
// tests and --no-cache.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Cache stores raw bytes under string keys with optional expiry.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// DefaultDir returns the per-user cache directory for pipeline artifacts.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cookieforge"), nil
}
