// Package cache holds short-lived snapshots of remote collections such as
// the user's devices and playlists.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchRecorder receives the outcome of every remote fetch.
type FetchRecorder interface {
	RecordCacheFetch(cache, status string)
}

// Cache is a TTL snapshot of a remote collection. Snapshots are replaced
// wholesale after a successful fetch and copied on every read, so callers
// never share or mutate the cached value.
type Cache[T any] struct {
	name       string
	ttl        time.Duration
	fetch      func(ctx context.Context) (T, error)
	authorized func() bool
	isEmpty    func(T) bool
	clone      func(T) T
	logger     *zap.Logger
	recorder   FetchRecorder
	now        func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	loaded    bool
}

// New creates a cache. authorized gates every Get: while it reports false the
// cache returns an empty value without calling fetch.
func New[T any](
	name string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
	authorized func() bool,
	isEmpty func(T) bool,
	clone func(T) T,
	logger *zap.Logger,
) *Cache[T] {
	return &Cache[T]{
		name:       name,
		ttl:        ttl,
		fetch:      fetch,
		authorized: authorized,
		isEmpty:    isEmpty,
		clone:      clone,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *Cache[T]) SetRecorder(r FetchRecorder) {
	c.recorder = r
}

// Get returns the cached snapshot, fetching it first when the cache is empty,
// expired or invalidated. A failed fetch is logged and yields an empty value;
// the previous snapshot is kept. Concurrent fetches are coalesced.
func (c *Cache[T]) Get(ctx context.Context) T {
	var empty T
	if c.authorized != nil && !c.authorized() {
		return empty
	}

	c.mu.RLock()
	value, fetchedAt, loaded := c.value, c.fetchedAt, c.loaded
	c.mu.RUnlock()

	if loaded && !c.isEmpty(value) && c.now().Sub(fetchedAt) < c.ttl {
		return c.clone(value)
	}

	result, err, _ := c.group.Do(c.name, func() (any, error) {
		fresh, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.value = fresh
		c.fetchedAt = c.now()
		c.loaded = true
		c.mu.Unlock()

		return fresh, nil
	})
	if err != nil {
		c.logger.Warn("Cache refresh failed", zap.String("cache", c.name), zap.Error(err))
		c.record("error")
		return empty
	}

	c.record("success")
	return c.clone(result.(T))
}

// Invalidate forces the next Get to refetch regardless of the TTL.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()

	c.logger.Debug("Cache invalidated", zap.String("cache", c.name))
}

func (c *Cache[T]) record(status string) {
	if c.recorder != nil {
		c.recorder.RecordCacheFetch(c.name, status)
	}
}
