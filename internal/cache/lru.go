package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// LRUCache is an in-process cache with TTL and size-based eviction. Keys are
// grouped by everything up to their last ':' so that DeletePrefix on a group
// ("dashboard:42:") touches only that group's entries.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	groups  map[string]map[string]struct{}
	now     func() time.Time
	stats   counters
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

var (
	_ Cache[int]    = (*LRUCache[int])(nil)
	_ Expirer       = (*LRUCache[int])(nil)
	_ StatsReporter = (*LRUCache[int])(nil)
)

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		groups:  make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func groupOf(key string) string {
	return key[:strings.LastIndexByte(key, ':')+1]
}

func (c *LRUCache[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.entries[key]
	if !ok {
		c.stats.miss()
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.remove(elem)
		c.stats.miss()
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.stats.hit()
	return e.value, true
}

func (c *LRUCache[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	if elem, ok := c.entries[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(e)
	g := groupOf(key)
	if c.groups[g] == nil {
		c.groups[g] = make(map[string]struct{})
	}
	c.groups[g][key] = struct{}{}

	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
		c.stats.evict(1)
	}
}

func (c *LRUCache[T]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}
}

func (c *LRUCache[T]) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if groupOf(prefix) == prefix {
		for key := range c.groups[prefix] {
			c.remove(c.entries[key])
		}
		return
	}
	for key, elem := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(elem)
		}
	}
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	e := elem.Value.(*entry[T])
	delete(c.entries, e.key)
	g := groupOf(e.key)
	delete(c.groups[g], e.key)
	if len(c.groups[g]) == 0 {
		delete(c.groups, g)
	}
	c.order.Remove(elem)
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.remove(elem)
			n++
		}
		elem = prev
	}
	c.stats.evict(n)
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[T]) Stats() Stats {
	return c.stats.snapshot()
}
