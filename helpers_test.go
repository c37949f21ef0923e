package authkit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a scriptable Backend that counts calls.
type fakeBackend struct {
	mu sync.Mutex

	identity   Identity
	signedIn   bool
	profiles   map[string]UserProfile
	authErr    error
	fetchErr   error
	currentErr error
	// currentHook runs before CurrentIdentity reads state; a non-nil error
	// is returned as is.
	currentHook func() error
	createRes  ProcedureResult
	createErr  error
	username   UsernameCheck

	calls       map[string]int
	deactivated []string
	actions     []ActionLog
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		identity:  Identity{ID: "u-1", Email: "ann@example.com", AccessToken: "opaque-token"},
		profiles:  map[string]UserProfile{"u-1": {ID: "u-1", Email: "ann@example.com", Username: "ann", Name: "Ann", Role: RoleMember, IsActive: true}},
		createRes: ProcedureResult{Success: true},
		username:  UsernameCheck{Valid: true},
		calls:     make(map[string]int),
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func (f *fakeBackend) Authenticate(context.Context, string, string) (Identity, error) {
	f.hit("Authenticate")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return Identity{}, f.authErr
	}
	f.signedIn = true
	return f.identity, nil
}

func (f *fakeBackend) CreateIdentity(_ context.Context, email, _ string, _ map[string]string) (Identity, error) {
	f.hit("CreateIdentity")
	return Identity{ID: "u-new", Email: email}, nil
}

func (f *fakeBackend) SignOut(context.Context) error {
	f.hit("SignOut")
	f.mu.Lock()
	f.signedIn = false
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) ResetPasswordEmail(context.Context, string, string) error {
	f.hit("ResetPasswordEmail")
	return nil
}

func (f *fakeBackend) UpdatePassword(context.Context, string) error {
	f.hit("UpdatePassword")
	return nil
}

func (f *fakeBackend) CurrentIdentity(context.Context) (Identity, error) {
	f.hit("CurrentIdentity")
	f.mu.Lock()
	hook := f.currentHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return Identity{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.currentErr != nil {
		return Identity{}, f.currentErr
	}
	if !f.signedIn {
		return Identity{}, ErrNoSession
	}
	return f.identity, nil
}

func (f *fakeBackend) FetchProfile(_ context.Context, id string) (UserProfile, error) {
	f.hit("FetchProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return UserProfile{}, f.fetchErr
	}
	p, ok := f.profiles[id]
	if !ok {
		return UserProfile{}, ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeBackend) UpdateProfile(_ context.Context, id string, fields ProfileFields) (UserProfile, error) {
	f.hit("UpdateProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return UserProfile{}, ErrProfileNotFound
	}
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Username != nil {
		p.Username = *fields.Username
	}
	f.profiles[id] = p
	return p, nil
}

func (f *fakeBackend) DeactivateProfile(_ context.Context, id string) error {
	f.hit("DeactivateProfile")
	f.mu.Lock()
	f.deactivated = append(f.deactivated, id)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) RecordLastLogin(context.Context, string, time.Time) error {
	f.hit("RecordLastLogin")
	return nil
}

func (f *fakeBackend) CreateUserAccount(context.Context, CreateAccountParams) (ProcedureResult, error) {
	f.hit("CreateUserAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createRes, f.createErr
}

func (f *fakeBackend) ValidateUsername(context.Context, string) (UsernameCheck, error) {
	f.hit("ValidateUsername")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username, nil
}

func (f *fakeBackend) LogUserAction(_ context.Context, entry ActionLog) error {
	f.hit("LogUserAction")
	f.mu.Lock()
	f.actions = append(f.actions, entry)
	f.mu.Unlock()
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
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

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Monitor.Enabled = false
	cfg.Audit.ForwardToBackend = false
	cfg.Signup.RollbackBackoff = time.Millisecond
	return cfg
}

func buildTestClient(t *testing.T, be Backend, clock *testClock, mutate func(*Config)) *Client {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	b := New().WithConfig(cfg).WithBackend(be).WithLogger(discardLogger())
	if clock != nil {
		b = b.WithClock(clock.Now)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}
