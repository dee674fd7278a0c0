package contextengine

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration, capacity int) (*ExpiringCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewExpiringCache[string](ttl, capacity)
	c.now = clock.now
	return c, clock
}

func TestExpiringCacheTTL(t *testing.T) {
	c, clock := newTestCache(5*time.Minute, 10)
	c.Set("k", "v1")

	clock.advance(4*time.Minute + 59*time.Second)
	if got, ok := c.Get("k"); !ok || got != "v1" {
		t.Fatalf("within ttl: want=v1 got=%q ok=%v", got, ok)
	}

	clock.advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expiry at ttl")
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("len after expiry: want=0 got=%d", got)
	}
}

func TestExpiringCacheEvictsOldest(t *testing.T) {
	c, clock := newTestCache(time.Hour, 3)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
		clock.advance(time.Second)
	}
	if _, ok := c.Get("k0"); ok {
		t.Fatalf("oldest entry should be evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(fmt.Sprintf("k%d", i)); !ok {
			t.Fatalf("k%d missing", i)
		}
	}
}

func TestExpiringCacheOverwriteRefreshes(t *testing.T) {
	c, clock := newTestCache(time.Minute, 2)
	c.Set("a", "1")
	clock.advance(time.Second)
	c.Set("b", "2")
	clock.advance(time.Second)
	c.Set("a", "3")
	clock.advance(time.Second)
	c.Set("c", "4")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b is oldest after a was refreshed and should be evicted")
	}
	if got, ok := c.Get("a"); !ok || got != "3" {
		t.Fatalf("a: want=3 got=%q ok=%v", got, ok)
	}
}
