package viewclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"thinblog/internal/domain/counts"
	"thinblog/internal/domain/slug"
	"thinblog/internal/logger"
)

const DefaultTTL = 5 * time.Minute

type Options struct {
	Fetcher Fetcher
	// Storage defaults to an in-memory store.
	Storage Storage
	TTL     time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

// Cache is shared by every subscription of a process. It is hydrated from
// Storage on first use; entries already expired at that point are dropped.
type Cache struct {
	fetcher Fetcher
	storage Storage
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	loadOnce sync.Once
	mu       sync.RWMutex
	entries  Map

	inflight singleflight.Group
}

func New(opts Options) *Cache {
	c := &Cache{
		fetcher: opts.Fetcher,
		storage: opts.Storage,
		ttl:     opts.TTL,
		now:     opts.Now,
		log:     logger.OrDiscard(opts.Logger).With("component", "viewclient"),
		entries: make(Map),
	}
	if c.storage == nil {
		c.storage = NewMemoryStorage()
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Cache) ensureLoaded(ctx context.Context) {
	c.loadOnce.Do(func() {
		raw, err := c.storage.Get(ctx, StorageKey)
		if err != nil {
			c.log.WarnContext(ctx, "failed to read cached view counts", "err", err)
			return
		}
		if len(raw) == 0 {
			return
		}
		var stored Map
		if err := json.Unmarshal(raw, &stored); err != nil {
			c.log.WarnContext(ctx, "failed to read cached view counts", "err", err)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		for k, e := range stored {
			if c.fresh(e) {
				c.entries[k] = e
			}
		}
	})
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.fetchedAt()) < c.ttl
}

// snapshot returns the fresh entries among bundles and the bundles that need
// a refresh.
func (c *Cache) snapshot(ctx context.Context, bundles []slug.Bundle) (Map, []slug.Bundle) {
	c.ensureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Map, len(bundles))
	var stale []slug.Bundle
	for _, b := range bundles {
		if e, ok := c.entries[b.WithoutTrailingSlash]; ok && c.fresh(e) {
			out[b.WithoutTrailingSlash] = e
			continue
		}
		stale = append(stale, b)
	}
	return out, stale
}

// Peek returns every entry currently held, fresh or not.
func (c *Cache) Peek(ctx context.Context) Map {
	c.ensureLoaded(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.clone()
}

// batchKeys returns the distinct analytics keys of bundles, sorted.
func batchKeys(bundles []slug.Bundle) []string {
	keys := make([]string, 0, len(bundles))
	seen := make(map[string]struct{}, len(bundles))
	for _, b := range bundles {
		if _, ok := seen[b.AnalyticsKey]; ok {
			continue
		}
		seen[b.AnalyticsKey] = struct{}{}
		keys = append(keys, b.AnalyticsKey)
	}
	sort.Strings(keys)
	return keys
}

// flightKey identifies a batch for in-flight sharing. Keys are length
// prefixed since any character may appear in a path.
func flightKey(keys []string) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(strconv.Itoa(len(k)))
		sb.WriteByte(':')
		sb.WriteString(k)
	}
	return sb.String()
}

// request fetches bundles in one batch. Concurrent calls for the same set of
// analytics keys share a single fetch; overlapping but different sets do not.
func (c *Cache) request(ctx context.Context, bundles []slug.Bundle) (Map, error) {
	if len(bundles) == 0 {
		return Map{}, nil
	}
	keys := batchKeys(bundles)
	v, err, _ := c.inflight.Do(flightKey(keys), func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		got, err := c.fetcher.FetchCounts(fetchCtx, keys)
		if err != nil {
			return nil, err
		}
		return c.merge(fetchCtx, bundles, got), nil
	})
	if err != nil {
		c.log.WarnContext(ctx, "view count fetch failed", "keys", keys, "err", err)
		return nil, err
	}
	return v.(Map), nil
}

// merge stores fetched counts. resolvedPath keeps the previous value when the
// server sent none, and falls back to the slug itself.
func (c *Cache) merge(ctx context.Context, bundles []slug.Bundle, got map[string]counts.Count) Map {
	ts := c.now().UnixMilli()
	out := make(Map, len(bundles))

	c.mu.Lock()
	for _, b := range bundles {
		cnt, ok := got[b.AnalyticsKey]
		if !ok {
			continue
		}
		k := b.WithoutTrailingSlash
		resolved := cnt.ResolvedPath
		if resolved == "" {
			resolved = c.entries[k].ResolvedPath
		}
		if resolved == "" {
			resolved = k
		}
		e := Entry{Total: cnt.Total, Unique: cnt.Unique, ResolvedPath: resolved, FetchedAt: ts}
		c.entries[k] = e
		out[k] = e
	}
	raw, err := json.Marshal(c.entries)
	c.mu.Unlock()

	if err == nil {
		err = c.storage.Put(ctx, StorageKey, raw)
	}
	if err != nil {
		c.log.WarnContext(ctx, "failed to persist view count cache", "err", err)
	}
	return out
}

// Subscribe returns a subscription for slugs and starts a background refresh
// when any of them lacks a fresh entry.
func (c *Cache) Subscribe(ctx context.Context, slugs []string) *Subscription {
	s := &Subscription{
		cache:   c,
		changes: make(chan State, 1),
	}
	s.SetSlugs(ctx, slugs)
	return s
}

func bundlesFor(slugs []string) []slug.Bundle {
	kept := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return slug.Dedupe(kept)
}
