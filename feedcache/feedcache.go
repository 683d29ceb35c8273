// Package feedcache caches rendered feed artifacts per resource namespace.
//
// Each namespace (one per resource) holds artifacts keyed by rendering
// parameters. Invalidating a namespace discards every artifact under it and
// advances its generation; a render that started before the invalidation can
// never store its now-stale result afterwards. Namespaces are fully
// independent: invalidating one never touches another.
//
// A cache in bypass mode always calls the render function and neither reads
// nor writes stored artifacts, for verification and for callers that need
// guaranteed freshness.
package feedcache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RenderFunc produces a feed artifact. It is invoked synchronously on a
// cache miss; a returned error propagates to the caller and nothing is
// stored.
type RenderFunc func(ctx context.Context) ([]byte, error)

// Options configures a Cache.
type Options struct {
	// TTL is how long a stored artifact stays servable. 0 means no expiry.
	TTL time.Duration
	// Bypass disables the cache entirely: every GetOrRender calls the
	// render function and nothing is read or stored.
	Bypass bool
	// Clock overrides time.Now, for deterministic TTL tests.
	Clock func() time.Time
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

type entry struct {
	artifact []byte
	storedAt time.Time
}

type namespace struct {
	gen     uint64
	entries map[string]entry
}

// Cache is a namespace-isolated artifact cache. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	namespaces map[string]*namespace
	opts       Options

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	Entries       int   `json:"entries"`
}

// New creates a Cache.
func New(opts Options) *Cache {
	opts.defaults()
	return &Cache{
		namespaces: make(map[string]*namespace),
		opts:       opts,
	}
}

// GetOrRender returns the cached artifact for (ns, key), or invokes render,
// stores the result, and returns it. The store is skipped if the namespace
// was invalidated while render was running, so an invalidation issued during
// a render can never be undone by that render's stale result.
func (c *Cache) GetOrRender(ctx context.Context, ns, key string, render RenderFunc) ([]byte, error) {
	if c.opts.Bypass {
		return render(ctx)
	}

	c.mu.Lock()
	n := c.namespaces[ns]
	if n != nil {
		if e, ok := n.entries[key]; ok && !c.expired(e) {
			c.mu.Unlock()
			c.hits.Add(1)
			return e.artifact, nil
		}
	}
	var gen uint64
	if n != nil {
		gen = n.gen
	}
	c.mu.Unlock()
	c.misses.Add(1)

	// Render outside the lock: renders for different namespaces must not
	// serialize each other, and render may take arbitrarily long.
	artifact, err := render(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	n = c.namespaces[ns]
	if n == nil {
		if gen == 0 {
			n = &namespace{entries: make(map[string]entry)}
			c.namespaces[ns] = n
		}
		// gen > 0 with a missing namespace cannot happen: Invalidate
		// keeps the namespace around to preserve its generation.
	}
	if n != nil && n.gen == gen {
		n.entries[key] = entry{artifact: artifact, storedAt: c.opts.Clock()}
	}
	c.mu.Unlock()

	return artifact, nil
}

// Invalidate discards every artifact under ns, regardless of key. Artifacts
// in other namespaces are untouched. Takes effect before Invalidate returns:
// any GetOrRender that starts afterwards re-renders.
func (c *Cache) Invalidate(ns string) {
	c.mu.Lock()
	n := c.namespaces[ns]
	if n == nil {
		// Record the invalidation anyway so an in-flight first render of
		// this namespace cannot store a result from before it.
		n = &namespace{entries: make(map[string]entry)}
		c.namespaces[ns] = n
	}
	n.gen++
	n.entries = make(map[string]entry)
	c.mu.Unlock()

	c.invalidations.Add(1)
	c.opts.Logger.Debug("feedcache: invalidated", "namespace", ns)
}

// Stats returns hit/miss/invalidation counters and the live entry count.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := 0
	for _, n := range c.namespaces {
		entries += len(n.entries)
	}
	c.mu.Unlock()

	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       entries,
	}
}

func (c *Cache) expired(e entry) bool {
	if c.opts.TTL <= 0 {
		return false
	}
	return c.opts.Clock().Sub(e.storedAt) >= c.opts.TTL
}
