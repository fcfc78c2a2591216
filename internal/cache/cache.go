package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value      any
	capturedAt time.Time
}

// Cache wraps go-cache with a fixed time-to-live measured against an
// injectable clock. Entries are only expired on read: a stale entry is
// reported as a miss and stays in place until the next Set overwrites it.
type Cache struct {
	inner *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		// No janitor: expiry is decided on read against our own clock.
		inner: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a value by key. Entries whose age has reached the TTL are
// reported as missing.
func (c *Cache) Get(key string) (any, bool) {
	val, found := c.inner.Get(key)
	if !found {
		return nil, false
	}
	e, ok := val.(entry)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.capturedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores a value captured at the current time.
func (c *Cache) Set(key string, val any) {
	c.inner.Set(key, entry{value: val, capturedAt: c.now()}, gocache.NoExpiration)
}
