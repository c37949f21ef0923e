package rate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func TestMemoryDeniesAfterMaxAttempts(t *testing.T) {
	clock := newTestClock()
	g := NewMemory(time.Minute, clock.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d, err := g.Check(ctx, "login", 5)
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: expected allowed, got %+v err=%v", i+1, d, err)
		}
		clock.Advance(time.Second)
	}

	d, err := g.Check(ctx, "login", 5)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected sixth attempt to be denied")
	}
	if d.Wait != 55*time.Second {
		t.Fatalf("expected wait until oldest attempt leaves window, got %v", d.Wait)
	}
	if got := g.Attempts("login"); got != 5 {
		t.Fatalf("denied attempts must not be recorded, got %d", got)
	}
}

func TestMemoryAllowsAfterWindow(t *testing.T) {
	clock := newTestClock()
	g := NewMemory(time.Minute, clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = g.Check(ctx, "signup", 3)
	}
	if d, _ := g.Check(ctx, "signup", 3); d.Allowed {
		t.Fatal("expected denial inside window")
	}

	clock.Advance(time.Minute)
	if d, _ := g.Check(ctx, "signup", 3); !d.Allowed {
		t.Fatal("expected attempt after window to be allowed")
	}
}

func TestMemorySlidesWindow(t *testing.T) {
	clock := newTestClock()
	g := NewMemory(10*time.Second, clock.Now)
	ctx := context.Background()

	_, _ = g.Check(ctx, "reset", 2)
	clock.Advance(6 * time.Second)
	_, _ = g.Check(ctx, "reset", 2)
	clock.Advance(5 * time.Second)

	// First attempt has left the window, second has not.
	if d, _ := g.Check(ctx, "reset", 2); !d.Allowed {
		t.Fatal("expected slot freed by the expired attempt")
	}
	d, _ := g.Check(ctx, "reset", 2)
	if d.Allowed {
		t.Fatal("expected denial with two live attempts")
	}
	if d.Wait != 5*time.Second {
		t.Fatalf("unexpected wait %v", d.Wait)
	}
}

func TestMemoryClassesAreIndependent(t *testing.T) {
	g := NewMemory(time.Minute, newTestClock().Now)
	ctx := context.Background()

	_, _ = g.Check(ctx, "login", 1)
	if d, _ := g.Check(ctx, "login", 1); d.Allowed {
		t.Fatal("expected login denied")
	}
	if d, _ := g.Check(ctx, "signup", 1); !d.Allowed {
		t.Fatal("signup must not share the login budget")
	}
}

func TestMemoryResetAndUnlimited(t *testing.T) {
	g := NewMemory(time.Minute, newTestClock().Now)
	ctx := context.Background()

	_, _ = g.Check(ctx, "login", 1)
	if err := g.Reset(ctx, "login"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if d, _ := g.Check(ctx, "login", 1); !d.Allowed {
		t.Fatal("expected allowed after reset")
	}

	for i := 0; i < 100; i++ {
		if d, _ := g.Check(ctx, "profile", 0); !d.Allowed {
			t.Fatal("non-positive max must disable the gate")
		}
	}
}

func TestEnforceReturnsLimitedError(t *testing.T) {
	clock := newTestClock()
	g := NewMemory(time.Minute, clock.Now)
	ctx := context.Background()

	if err := Enforce(ctx, g, "login", 1); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	clock.Advance(1500 * time.Millisecond)

	err := Enforce(ctx, g, "login", 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var limited *LimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *LimitedError, got %T", err)
	}
	if limited.Action != "login" || limited.Wait != 58500*time.Millisecond {
		t.Fatalf("unexpected limited error %+v", limited)
	}

	if err := Enforce(ctx, nil, "login", 1); err != nil {
		t.Fatalf("nil gate must allow, got %v", err)
	}
}

func TestMemoryConcurrentChecks(t *testing.T) {
	g := NewMemory(time.Minute, nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := g.Check(ctx, "login", 10); d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Fatalf("expected exactly 10 admitted attempts, got %d", allowed)
	}
}
