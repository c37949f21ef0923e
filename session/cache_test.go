package session

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testProfile() UserProfile {
	return UserProfile{
		ID:       "u-1",
		Email:    "alice@example.com",
		Name:     "Alice",
		Username: "alice",
		Role:     RoleMember,
		IsActive: true,
		Avatar:   "https://api.dicebear.com/9.x/adventurer/svg?seed=Felix",
	}
}

func TestCacheMissWhenEmpty(t *testing.T) {
	c := NewCache(time.Minute, nil)
	if _, ok := c.Get(false); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestCacheHitWithinTTLIsStable(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(5*time.Minute, clock.Now)
	c.Set(testProfile())

	clock.Advance(time.Minute)
	first, ok := c.Get(false)
	if !ok {
		t.Fatal("expected first hit")
	}
	clock.Advance(time.Minute)
	second, ok := c.Get(false)
	if !ok {
		t.Fatal("expected second hit")
	}
	if first != second {
		t.Fatalf("expected identical profiles, got %+v and %+v", first, second)
	}
}

func TestCacheStaleEntryIsMiss(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(5*time.Minute, clock.Now)
	c.Set(testProfile())

	clock.Advance(5 * time.Minute)
	if _, ok := c.Get(false); ok {
		t.Fatal("expected miss at exactly TTL")
	}
	if _, ok := c.Peek(); ok {
		t.Fatal("expected stale entry to be evicted")
	}
}

func TestCacheForceRefreshIsMiss(t *testing.T) {
	c := NewCache(time.Minute, nil)
	c.Set(testProfile())
	if _, ok := c.Get(true); ok {
		t.Fatal("expected forced refresh to miss")
	}
	if _, ok := c.Get(false); !ok {
		t.Fatal("forced refresh must not drop the entry")
	}
}

func TestCacheInvalidateThenMiss(t *testing.T) {
	c := NewCache(time.Hour, nil)
	c.Set(testProfile())
	c.Invalidate()
	if _, ok := c.Get(false); ok {
		t.Fatal("expected miss after Invalidate")
	}
}

func TestCacheReturnsCopy(t *testing.T) {
	c := NewCache(time.Hour, nil)
	c.Set(testProfile())

	got, _ := c.Get(false)
	got.Name = "mutated"

	again, _ := c.Get(false)
	if again.Name != "Alice" {
		t.Fatalf("cache entry mutated through returned value: %q", again.Name)
	}
}

func TestCacheSetRestartsTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewCache(5*time.Minute, clock.Now)
	c.Set(testProfile())

	clock.Advance(4 * time.Minute)
	c.Set(testProfile())
	clock.Advance(4 * time.Minute)

	if _, ok := c.Get(false); !ok {
		t.Fatal("expected hit after Set restarted the TTL")
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c := NewCache(0, nil)
	if c.TTL() != DefaultTTL {
		t.Fatalf("expected default TTL %v, got %v", DefaultTTL, c.TTL())
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *Cache
	c.Set(testProfile())
	c.Invalidate()
	if _, ok := c.Get(false); ok {
		t.Fatal("nil cache must always miss")
	}
}
