package schedule

import (
	"sync/atomic"
	"time"
)

type snapshot[T any] struct {
	items     []T
	fetchedAt time.Time
}

// Cache holds the latest fetched list. Lists are replaced wholesale and never
// patched, so readers only need an atomic pointer load. Callers must not
// modify the returned slice.
type Cache[T any] struct {
	p atomic.Pointer[snapshot[T]]
}

// Load returns the current items and when they were fetched. ok is false
// until the first Store.
func (c *Cache[T]) Load() (items []T, fetchedAt time.Time, ok bool) {
	s := c.p.Load()
	if s == nil {
		return nil, time.Time{}, false
	}
	return s.items, s.fetchedAt, true
}

// Store replaces the cached list.
func (c *Cache[T]) Store(items []T, fetchedAt time.Time) {
	c.p.Store(&snapshot[T]{items: items, fetchedAt: fetchedAt})
}

// Fresh reports whether a snapshot exists and is younger than ttl at now.
func (c *Cache[T]) Fresh(now time.Time, ttl time.Duration) bool {
	_, at, ok := c.Load()
	return ok && now.Sub(at) < ttl
}
