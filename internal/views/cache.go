package views

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"thinblog/internal/domain/counts"
)

type cached struct {
	count    counts.Count
	storedAt time.Time
}

// Cache is the per-process resolver cache keyed by analytics key. Freshness
// is judged against the injected clock; go-cache only evicts long-dead
// entries so memory stays bounded.
type Cache struct {
	items *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCache returns a cache holding entries for ttl. A ttl of zero or less
// disables caching. now defaults to time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	c := &Cache{ttl: ttl, now: now}
	if ttl > 0 {
		c.items = gocache.New(2*ttl, 4*ttl)
	}
	return c
}

func (c *Cache) Get(key string) (counts.Count, bool) {
	if c == nil || c.items == nil {
		return counts.Count{}, false
	}
	v, ok := c.items.Get(key)
	if !ok {
		return counts.Count{}, false
	}
	e := v.(cached)
	if c.now().Sub(e.storedAt) >= c.ttl {
		return counts.Count{}, false
	}
	return e.count, true
}

func (c *Cache) Set(key string, count counts.Count) {
	if c == nil || c.items == nil {
		return
	}
	c.items.SetDefault(key, cached{count: count, storedAt: c.now()})
}

func (c *Cache) Len() int {
	if c == nil || c.items == nil {
		return 0
	}
	return c.items.ItemCount()
}
