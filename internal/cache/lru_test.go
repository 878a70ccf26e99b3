package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[string](2, time.Minute)

	c.Set(ctx, "a", "1")
	if v, ok := c.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("get a: %q %v", v, ok)
	}

	c.Delete(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Get(ctx, "a")
	c.Set(ctx, "c", 3)

	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatalf("expected b evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size=%d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	now = now.Add(2 * time.Minute)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("cleaned %d, want 2", n)
	}
	c.Set(ctx, "c", 3)
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "c"); ok {
		t.Fatalf("expected expired miss")
	}
}

func TestLRUDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](10, time.Minute)
	c.Set(ctx, "dashboard:1:2024-05", 1)
	c.Set(ctx, "dashboard:1:2024-04", 2)
	c.Set(ctx, "dashboard:12:2024-05", 3)

	c.DeletePrefix(ctx, "dashboard:1:")
	if c.Size() != 1 {
		t.Fatalf("size=%d, want 1", c.Size())
	}
	if _, ok := c.Get(ctx, "dashboard:12:2024-05"); !ok {
		t.Fatalf("unrelated user entry removed")
	}
}

func TestLRUDeletePrefixPartialGroup(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](10, time.Minute)
	c.Set(ctx, "dashboard:1:2024-05", 1)
	c.Set(ctx, "dashboard:12:2024-05", 2)
	c.Set(ctx, "session:1", 3)

	c.DeletePrefix(ctx, "dashboard:1")
	if c.Size() != 1 {
		t.Fatalf("size=%d, want 1", c.Size())
	}
	if _, ok := c.Get(ctx, "session:1"); !ok {
		t.Fatalf("session entry removed")
	}
}

func TestLRUStats(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](1, time.Minute)

	c.Set(ctx, "a", 1)
	c.Get(ctx, "a")
	c.Get(ctx, "missing")
	c.Set(ctx, "b", 2)

	got := c.Stats()
	want := Stats{Hits: 1, Misses: 1, Evictions: 1}
	if got != want {
		t.Fatalf("stats=%+v, want %+v", got, want)
	}
}

func TestSweeperStopWithoutStart(t *testing.T) {
	s := NewSweeper(time.Second, NewLRUCache[int](1, time.Second))
	s.Stop()
	s.Stop()
}

func TestSweeperSweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := NewLRUCache[int](10, time.Minute)
	b := NewLRUCache[string](10, time.Minute)
	a.now = func() time.Time { return now }
	b.now = func() time.Time { return now }

	a.Set(context.Background(), "x", 1)
	b.Set(context.Background(), "y", "2")
	now = now.Add(time.Hour)

	if n := NewSweeper(time.Minute, a, b).Sweep(); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
}

func TestSweeperRuns(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set(context.Background(), "a", 1)

	s := NewSweeper(5*time.Millisecond, c)
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("entry not swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
