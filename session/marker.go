package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis marker store.
var ErrRedisUnavailable = errors.New("redis unavailable")

// MarkerStore keeps the cache-busting "signed in here" marker. It is a hint
// for other tabs or processes, never authoritative state.
type MarkerStore interface {
	Set(ctx context.Context, identityID string, ttl time.Duration) error
	Clear(ctx context.Context, identityID string) error
	Exists(ctx context.Context, identityID string) (bool, error)
}

// MemoryMarkers is a process-local [MarkerStore].
type MemoryMarkers struct {
	mu      sync.Mutex
	now     func() time.Time
	markers map[string]time.Time
}

// NewMemoryMarkers returns an empty in-process marker store.
func NewMemoryMarkers(now func() time.Time) *MemoryMarkers {
	if now == nil {
		now = time.Now
	}
	return &MemoryMarkers{
		now:     now,
		markers: make(map[string]time.Time),
	}
}

// Set records a marker; a non-positive ttl never expires.
func (m *MemoryMarkers) Set(_ context.Context, identityID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.markers[identityID] = expires
	return nil
}

// Clear removes the marker. Clearing a missing marker is not an error.
func (m *MemoryMarkers) Clear(_ context.Context, identityID string) error {
	m.mu.Lock()
	delete(m.markers, identityID)
	m.mu.Unlock()
	return nil
}

// Exists reports whether an unexpired marker is present.
func (m *MemoryMarkers) Exists(_ context.Context, identityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expires, ok := m.markers[identityID]
	if !ok {
		return false, nil
	}
	if !expires.IsZero() && !m.now().Before(expires) {
		delete(m.markers, identityID)
		return false, nil
	}
	return true, nil
}

// RedisMarkers is a [MarkerStore] shared across processes through Redis.
type RedisMarkers struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisMarkers creates a Redis-backed marker store. Keys are laid out as
// "<prefix>:mk:<identity>".
func NewRedisMarkers(redisClient redis.UniversalClient, prefix string) *RedisMarkers {
	if prefix == "" {
		prefix = "authkit"
	}
	return &RedisMarkers{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (r *RedisMarkers) key(identityID string) string {
	return r.prefix + ":mk:" + identityID
}

// Set stores the marker with ttl; zero ttl keeps it until cleared.
func (r *RedisMarkers) Set(ctx context.Context, identityID string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.redis.Set(ctx, r.key(identityID), time.Now().UTC().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear deletes the marker key. Deleting a missing key succeeds.
func (r *RedisMarkers) Clear(ctx context.Context, identityID string) error {
	if err := r.redis.Del(ctx, r.key(identityID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether the marker key is present.
func (r *RedisMarkers) Exists(ctx context.Context, identityID string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(identityID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
