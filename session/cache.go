package session

import (
	"sync"
	"time"
)

// DefaultTTL is the validity window of a cached profile.
const DefaultTTL = 5 * time.Minute

// Entry pairs a cached profile with the moment it was captured.
type Entry struct {
	Profile    UserProfile
	CapturedAt time.Time
}

// Fresh reports whether the entry is still inside ttl at now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CapturedAt) < ttl
}

// Cache is a single-slot, last-writer-wins holder for the signed-in profile.
//
// A stale or absent entry is a miss; the caller re-fetches and calls Set.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	entry *Entry
}

// NewCache returns an empty cache. A non-positive ttl falls back to
// [DefaultTTL]; a nil clock uses time.Now.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now}
}

// Get returns the cached profile when present, fresh, and forceRefresh is
// false. The returned value is a copy.
func (c *Cache) Get(forceRefresh bool) (UserProfile, bool) {
	if c == nil || forceRefresh {
		return UserProfile{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return UserProfile{}, false
	}
	if !c.entry.Fresh(c.now(), c.ttl) {
		c.entry = nil
		return UserProfile{}, false
	}
	return c.entry.Profile, true
}

// Set replaces the cached profile and restarts its TTL.
func (c *Cache) Set(profile UserProfile) {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.entry = &Entry{Profile: profile, CapturedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops the entry; the next Get is a miss regardless of timing.
func (c *Cache) Invalidate() {
	if c == nil {
		return
	}

	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

// Peek returns the raw entry, stale or not, without evicting it.
func (c *Cache) Peek() (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return Entry{}, false
	}
	return *c.entry, true
}

// TTL returns the configured validity window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
