package rate

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local sliding-log gate.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemory returns an in-process gate. A non-positive window uses
// [DefaultWindow]; a nil clock uses time.Now.
func NewMemory(window time.Duration, now func() time.Time) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{
		window:   window,
		now:      now,
		attempts: make(map[string][]time.Time),
	}
}

// Check prunes attempts that left the window, then admits the attempt if
// fewer than maxAttempts remain. Denied attempts are not recorded.
func (m *Memory) Check(_ context.Context, action string, maxAttempts int) (Decision, error) {
	if maxAttempts <= 0 {
		return Decision{Allowed: true}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	log := m.attempts[action]
	kept := log[:0]
	for _, at := range log {
		if now.Sub(at) < m.window {
			kept = append(kept, at)
		}
	}

	if len(kept) >= maxAttempts {
		m.attempts[action] = kept
		wait := kept[0].Add(m.window).Sub(now)
		if wait < 0 {
			wait = 0
		}
		return Decision{Allowed: false, Wait: wait}, nil
	}

	m.attempts[action] = append(kept, now)
	return Decision{Allowed: true}, nil
}

// Reset forgets every attempt for action.
func (m *Memory) Reset(_ context.Context, action string) error {
	m.mu.Lock()
	delete(m.attempts, action)
	m.mu.Unlock()
	return nil
}

// Attempts returns how many attempts for action are inside the window.
func (m *Memory) Attempts(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for _, at := range m.attempts[action] {
		if now.Sub(at) < m.window {
			n++
		}
	}
	return n
}
