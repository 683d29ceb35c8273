package feedcache_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/feedwatch/feedcache"
)

func constRender(b []byte) (feedcache.RenderFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(_ context.Context) ([]byte, error) {
		calls.Add(1)
		return b, nil
	}, &calls
}

func TestHitSkipsRender(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()
	render, calls := constRender([]byte("<rss/>"))

	first, err := c.GetOrRender(ctx, "res-a", "limit=20", render)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetOrRender(ctx, "res-a", "limit=20", render)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != "<rss/>" || string(second) != "<rss/>" {
		t.Fatalf("got %q / %q", first, second)
	}
	if calls.Load() != 1 {
		t.Fatalf("render called %d times, want 1", calls.Load())
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit / 1 miss", stats)
	}
}

func TestDistinctParamsDistinctEntries(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()

	c.GetOrRender(ctx, "res-a", "limit=10", func(_ context.Context) ([]byte, error) {
		return []byte("ten"), nil
	})
	got, _ := c.GetOrRender(ctx, "res-a", "limit=20", func(_ context.Context) ([]byte, error) {
		return []byte("twenty"), nil
	})
	if string(got) != "twenty" {
		t.Fatalf("got %q, want twenty", got)
	}
}

func TestInvalidateIsolation(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()

	renderA, callsA := constRender([]byte("feed-a"))
	renderB, callsB := constRender([]byte("feed-b"))

	c.GetOrRender(ctx, "res-a", "limit=20", renderA)
	c.GetOrRender(ctx, "res-b", "limit=20", renderB)

	c.Invalidate("res-a")

	// A re-renders, B is still served from cache.
	c.GetOrRender(ctx, "res-a", "limit=20", renderA)
	c.GetOrRender(ctx, "res-b", "limit=20", renderB)

	if callsA.Load() != 2 {
		t.Fatalf("render A called %d times, want 2", callsA.Load())
	}
	if callsB.Load() != 1 {
		t.Fatalf("render B called %d times, want 1 (isolation violated)", callsB.Load())
	}
}

func TestInvalidateRemovesAllParams(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()
	render, calls := constRender([]byte("x"))

	c.GetOrRender(ctx, "res-a", "limit=10", render)
	c.GetOrRender(ctx, "res-a", "limit=20", render)
	c.Invalidate("res-a")
	c.GetOrRender(ctx, "res-a", "limit=10", render)
	c.GetOrRender(ctx, "res-a", "limit=20", render)

	if calls.Load() != 4 {
		t.Fatalf("render called %d times, want 4", calls.Load())
	}
}

func TestStaleRenderNotStoredAfterInvalidation(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()

	// The render invalidates its own namespace mid-flight, simulating an
	// enrichment completing between render start and store.
	stale := func(_ context.Context) ([]byte, error) {
		c.Invalidate("res-a")
		return []byte("stale"), nil
	}
	got, err := c.GetOrRender(ctx, "res-a", "limit=20", stale)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "stale" {
		t.Fatalf("caller still receives the render result, got %q", got)
	}

	// The stale result must not have been cached.
	fresh, _ := c.GetOrRender(ctx, "res-a", "limit=20", func(_ context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	if string(fresh) != "fresh" {
		t.Fatalf("got %q, want fresh (stale artifact survived invalidation)", fresh)
	}
}

func TestBypass(t *testing.T) {
	c := feedcache.New(feedcache.Options{Bypass: true})
	ctx := context.Background()
	render, calls := constRender([]byte("x"))

	c.GetOrRender(ctx, "res-a", "limit=20", render)
	c.GetOrRender(ctx, "res-a", "limit=20", render)

	if calls.Load() != 2 {
		t.Fatalf("render called %d times, want 2 (bypass must not cache)", calls.Load())
	}
	if s := c.Stats(); s.Entries != 0 {
		t.Fatalf("bypass stored %d entries, want 0", s.Entries)
	}
}

func TestRenderErrorNotCached(t *testing.T) {
	c := feedcache.New(feedcache.Options{})
	ctx := context.Background()

	boom := errors.New("render failed")
	_, err := c.GetOrRender(ctx, "res-a", "limit=20", func(_ context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	render, calls := constRender([]byte("ok"))
	c.GetOrRender(ctx, "res-a", "limit=20", render)
	if calls.Load() != 1 {
		t.Fatal("expected a fresh render after a failed one")
	}
	if s := c.Stats(); s.Entries != 1 {
		t.Fatalf("entries = %d, want 1", s.Entries)
	}
}

func TestTTLExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	c := feedcache.New(feedcache.Options{TTL: time.Minute, Clock: clock})
	ctx := context.Background()
	render, calls := constRender([]byte("x"))

	c.GetOrRender(ctx, "res-a", "limit=20", render)
	now = now.Add(30 * time.Second)
	c.GetOrRender(ctx, "res-a", "limit=20", render)
	if calls.Load() != 1 {
		t.Fatalf("render called %d times before TTL, want 1", calls.Load())
	}

	now = now.Add(31 * time.Second)
	c.GetOrRender(ctx, "res-a", "limit=20", render)
	if calls.Load() != 2 {
		t.Fatalf("render called %d times after TTL, want 2", calls.Load())
	}
}
