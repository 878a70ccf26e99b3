// Package cache holds the dashboard read cache: an in-process LRU for a
// single instance and a Redis-backed variant shared between instances.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	applog "fintrack/internal/log"
)

// Cache is a typed key/value cache. Misses and backend failures both
// report ok=false; callers recompute in either case.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	Delete(ctx context.Context, key string)
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string)
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// StatsReporter is implemented by caches that count their traffic.
type StatsReporter interface {
	Stats() Stats
}

type counters struct {
	hits, misses, evictions int64
}

func (c *counters) hit() { atomic.AddInt64(&c.hits, 1) }

func (c *counters) miss() { atomic.AddInt64(&c.misses, 1) }

func (c *counters) evict(n int) { atomic.AddInt64(&c.evictions, int64(n)) }

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// Expirer is implemented by caches that need expired entries swept.
type Expirer interface {
	CleanExpired() int
}

// Sweeper periodically removes expired entries from in-process caches.
// Redis expires keys itself and needs no sweeper.
type Sweeper struct {
	interval time.Duration
	caches   []Expirer

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewSweeper(interval time.Duration, caches ...Expirer) *Sweeper {
	return &Sweeper{
		interval: interval,
		caches:   caches,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.startOnce.Do(func() { go s.run() })
}

func (s *Sweeper) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Expired cache entries removed",
					applog.FieldComponent, applog.ComponentCache,
					"count", n)
			}
		case <-s.stop:
			return
		}
	}
}

// Sweep cleans every cache once and returns the number of entries removed.
func (s *Sweeper) Sweep() int {
	n := 0
	for _, c := range s.caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweep loop and waits for it. Safe to call more than once or
// without Start.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.done
		}
	})
}
