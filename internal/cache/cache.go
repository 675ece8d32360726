// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/solatis/datagrid/internal/log"
	"github.com/solatis/datagrid/internal/metrics"
)

/*
 * Result cache.
 *
 * Stores serialized grid results under their request fingerprint. The cache
 * is an optimization only: every backend failure is logged and reported as
 * a miss (reads) or ignored (writes and invalidation), so a broken backend
 * slows requests down but never fails them.
 *
 * Timeout convention, in seconds:
 *   -1  caching disabled; Put removes any existing entry and stores nothing
 *    0  entry never expires
 *   N   entry expires N seconds after Put
 *
 * Invalidation enumerates keys and deletes matches. Both forms return the
 * number of entries removed.
 *
 * Stores that also implement ObjectStore hold live values next to bytes.
 * Callers prefer that path when available so a hit returns exactly what was
 * stored, fields that have no serialized form included.
 */

var (
	// ErrKeyNotFound is returned by a Store when a key is absent or expired.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCacheUnavailable is returned when a cache backend cannot be reached.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrStoreClosed is returned by a Store used after Close.
	ErrStoreClosed = errors.New("cache store closed")
)

// Timeout values with special meaning.
const (
	TimeoutDisabled = -1
	TimeoutNever    = 0
)

// Store is a byte-oriented key/value backend.
type Store interface {
	// Get returns ErrKeyNotFound for absent or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; ttl 0 keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys and reports how many existed.
	Delete(ctx context.Context, keys ...string) (int, error)
	// Keys lists live keys.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// ObjectStore is implemented by in-process stores that can keep values
// without serializing them. Objects and bytes share one key space.
type ObjectStore interface {
	// GetObject returns ErrKeyNotFound for absent or expired keys.
	GetObject(ctx context.Context, key string) (any, error)
	SetObject(ctx context.Context, key string, value any, ttl time.Duration) error
}

// ResultCache applies the timeout convention on top of a Store and hides
// store failures from callers.
type ResultCache struct {
	store  Store
	logger log.Logger
}

// NewResultCache wraps store. A nil logger discards log output.
func NewResultCache(store Store, logger log.Logger) *ResultCache {
	if logger == nil {
		logger = log.Nop()
	}
	return &ResultCache{store: store, logger: logger}
}

// Get returns the value stored under key. Store errors count as a miss.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.store.Get(ctx, key)
	return value, c.lookup(key, err)
}

// Put stores value under key for timeoutSeconds.
func (c *ResultCache) Put(ctx context.Context, key string, value []byte, timeoutSeconds int) {
	c.put(ctx, key, timeoutSeconds, func(ttl time.Duration) error {
		return c.store.Set(ctx, key, value, ttl)
	})
}

// HoldsObjects reports whether the store keeps live values.
func (c *ResultCache) HoldsObjects() bool {
	_, ok := c.store.(ObjectStore)
	return ok
}

// GetObject returns the live value stored under key. Stores without object
// support always miss.
func (c *ResultCache) GetObject(ctx context.Context, key string) (any, bool) {
	objects, ok := c.store.(ObjectStore)
	if !ok {
		return nil, false
	}
	value, err := objects.GetObject(ctx, key)
	return value, c.lookup(key, err)
}

// PutObject stores a live value under key for timeoutSeconds. Stores
// without object support store nothing.
func (c *ResultCache) PutObject(ctx context.Context, key string, value any, timeoutSeconds int) {
	objects, ok := c.store.(ObjectStore)
	if !ok {
		return
	}
	c.put(ctx, key, timeoutSeconds, func(ttl time.Duration) error {
		return objects.SetObject(ctx, key, value, ttl)
	})
}

func (c *ResultCache) lookup(key string, err error) bool {
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		c.logger.Debug("cache hit", "key", key)
		return true
	case errors.Is(err, ErrKeyNotFound):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		c.logger.Debug("cache miss", "key", key)
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("cache read failed, treating as miss", "key", key, "err", err)
	}
	return false
}

func (c *ResultCache) put(ctx context.Context, key string, timeoutSeconds int, set func(ttl time.Duration) error) {
	if timeoutSeconds < TimeoutNever {
		if _, err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("cache delete failed", "key", key, "err", err)
		}
		return
	}
	if err := set(time.Duration(timeoutSeconds) * time.Second); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

// InvalidateContaining removes every entry whose key contains substr.
func (c *ResultCache) InvalidateContaining(ctx context.Context, substr string) int {
	return c.invalidate(ctx, func(key string) bool { return strings.Contains(key, substr) })
}

// InvalidatePattern removes every entry whose key matches re.
func (c *ResultCache) InvalidatePattern(ctx context.Context, re *regexp.Regexp) int {
	if re == nil {
		return 0
	}
	return c.invalidate(ctx, re.MatchString)
}

// Close releases the underlying store.
func (c *ResultCache) Close() error {
	return c.store.Close()
}

func (c *ResultCache) invalidate(ctx context.Context, match func(string) bool) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.logger.Warn("cache key listing failed, nothing invalidated", "err", err)
		return 0
	}

	var doomed []string
	for _, key := range keys {
		if match(key) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	removed, err := c.store.Delete(ctx, doomed...)
	if err != nil {
		c.logger.Warn("cache invalidation failed", "keys", len(doomed), "err", err)
	}
	metrics.CacheInvalidations.Add(float64(removed))
	c.logger.Debug("cache invalidated", "removed", removed)
	return removed
}
