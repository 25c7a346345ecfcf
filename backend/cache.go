package backend

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cached wraps a Backend with a read-through cache. Concurrent loads of the
// same key are collapsed into a single trip to the inner backend, and saves
// populate the cache so a save-then-load never touches storage.
type Cached struct {
	inner Backend

	mu    sync.RWMutex
	cache map[string][]byte
	group singleflight.Group
}

// WithCache wraps the backend with a read-through cache.
func WithCache(inner Backend) *Cached {
	return &Cached{inner: inner, cache: make(map[string][]byte)}
}

func (c *Cached) Save(ctx context.Context, key string, data []byte) error {
	if err := c.inner.Save(ctx, key, data); err != nil {
		return err
	}
	c.mu.Lock()
	c.cache[key] = append([]byte(nil), data...)
	c.mu.Unlock()
	return nil
}

func (c *Cached) Load(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return append([]byte(nil), data...), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := c.inner.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = append([]byte(nil), data...)
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Invalidate drops the cached payload for the key, forcing the next load to
// hit the inner backend.
func (c *Cached) Invalidate(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}
