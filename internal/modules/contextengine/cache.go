package contextengine

import (
	"container/heap"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	key       string
	value     V
	storedAt  time.Time
	expiresAt time.Time
	index     int
}

type expiryHeap[V any] []*cacheEntry[V]

func (h expiryHeap[V]) Len() int { return len(h) }
func (h expiryHeap[V]) Less(i, j int) bool {
	if h[i].expiresAt.Equal(h[j].expiresAt) {
		return h[i].storedAt.Before(h[j].storedAt)
	}
	return h[i].expiresAt.Before(h[j].expiresAt)
}
func (h expiryHeap[V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *expiryHeap[V]) Push(x any) {
	e := x.(*cacheEntry[V])
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *expiryHeap[V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// ExpiringCache is a capacity-bounded TTL map. Entries share one TTL, so the
// heap head is both the next to expire and the oldest stored.
type ExpiringCache[V any] struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	heap    expiryHeap[V]
}

func NewExpiringCache[V any](ttl time.Duration, capacity int) *ExpiringCache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &ExpiringCache[V]{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  map[string]*cacheEntry[V]{},
	}
}

func (c *ExpiringCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeLocked(e)
		return zero, false
	}
	return e.value, true
}

func (c *ExpiringCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.purgeExpiredLocked(now)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = now
		e.expiresAt = now.Add(c.ttl)
		heap.Fix(&c.heap, e.index)
		return
	}
	e := &cacheEntry[V]{key: key, value: value, storedAt: now, expiresAt: now.Add(c.ttl)}
	heap.Push(&c.heap, e)
	c.entries[key] = e
	for len(c.entries) > c.capacity {
		oldest := heap.Pop(&c.heap).(*cacheEntry[V])
		delete(c.entries, oldest.key)
	}
}

// Len counts live entries.
func (c *ExpiringCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked(c.now())
	return len(c.entries)
}

func (c *ExpiringCache[V]) purgeExpiredLocked(now time.Time) {
	for c.heap.Len() > 0 && !now.Before(c.heap[0].expiresAt) {
		e := heap.Pop(&c.heap).(*cacheEntry[V])
		delete(c.entries, e.key)
	}
}

func (c *ExpiringCache[V]) removeLocked(e *cacheEntry[V]) {
	if e.index >= 0 {
		heap.Remove(&c.heap, e.index)
	}
	delete(c.entries, e.key)
}
