package memory_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/backend/memory"
)

func newClient(t *testing.T, be *memory.Backend, mutate func(*authkit.Config)) *authkit.Client {
	t.Helper()

	cfg := authkit.DefaultConfig()
	cfg.Monitor.Enabled = false
	cfg.Signup.RollbackBackoff = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := authkit.New().
		WithConfig(cfg).
		WithBackend(be).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return client
}

func newBackend(t *testing.T) *memory.Backend {
	t.Helper()
	be, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return be
}

func TestClientFullLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := newBackend(t)
	client := newClient(t, be, nil)
	ctx := context.Background()

	res := client.Signup(ctx, authkit.SignupRequest{
		Email:    "ann@example.com",
		Password: "secret123",
		Username: "Ann_01",
	})
	if !res.Success || res.User == nil {
		t.Fatalf("Signup failed: %+v", res)
	}
	if res.User.Username != "ann_01" || res.User.Name != "ann_01" || res.User.Avatar == "" {
		t.Fatalf("unexpected signup profile: %+v", res.User)
	}
	if _, ok := be.Session(); ok {
		t.Fatal("signup must not sign in")
	}

	res = client.Login(ctx, "ann@example.com", "secret123")
	if !res.Success || res.User == nil || res.User.Username != "ann_01" {
		t.Fatalf("Login failed: %+v", res)
	}

	res = client.CurrentUser(ctx, false)
	if !res.Success || res.User == nil || res.User.Email != "ann@example.com" {
		t.Fatalf("CurrentUser failed: %+v", res)
	}

	name := "Ann B"
	res = client.UpdateProfile(ctx, authkit.ProfileUpdate{Name: &name})
	if !res.Success || res.User == nil || res.User.Name != name {
		t.Fatalf("UpdateProfile failed: %+v", res)
	}

	res = client.UpdatePassword(ctx, "newsecret1")
	if !res.Success {
		t.Fatalf("UpdatePassword failed: %+v", res)
	}

	res = client.Logout(ctx)
	if !res.Success {
		t.Fatalf("Logout failed: %+v", res)
	}
	res = client.CurrentUser(ctx, false)
	if res.Success || res.Error != authkit.CodeNotAuthenticated {
		t.Fatalf("expected not-authenticated after logout, got %+v", res)
	}

	res = client.Login(ctx, "ann@example.com", "secret123")
	if res.Success || res.Error != authkit.CodeInvalidCredentials {
		t.Fatalf("old password must be rejected, got %+v", res)
	}

	client.Close()

	events := make(map[string]int)
	for _, a := range be.Actions() {
		events[a.Action]++
	}
	for _, want := range []string{"signup", "login", "profile_update", "password_update", "logout", "login_failed"} {
		if events[want] == 0 {
			t.Fatalf("expected forwarded %q event, got %v", want, events)
		}
	}
}

func TestClientSignupRollback(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := newBackend(t)
	client := newClient(t, be, nil)
	defer client.Close()
	ctx := context.Background()

	be.FailCreateAccount("", "")

	res := client.Signup(ctx, authkit.SignupRequest{
		Email:    "bob@example.com",
		Password: "secret123",
		Username: "bob",
	})
	if res.Success || res.Error != authkit.CodeDatabase {
		t.Fatalf("expected database-error, got %+v", res)
	}

	snap := client.MetricsSnapshot()
	if snap.Counters[authkit.MetricSignupRollback] != 1 {
		t.Fatalf("expected one rollback, got %d", snap.Counters[authkit.MetricSignupRollback])
	}
	if snap.Counters[authkit.MetricSignupRollbackFailed] != 0 {
		t.Fatalf("rollback against a missing row should succeed, got %d failures", snap.Counters[authkit.MetricSignupRollbackFailed])
	}
}

func TestClientDisabledAccount(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := newBackend(t)
	ctx := context.Background()
	if _, err := be.AddUser(ctx, memory.User{Email: "cy@example.com", Password: "secret123", Username: "cy", Inactive: true}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	client := newClient(t, be, nil)
	defer client.Close()

	res := client.Login(ctx, "cy@example.com", "secret123")
	if res.Success || res.Error != authkit.CodeUserDisabled {
		t.Fatalf("expected user-disabled, got %+v", res)
	}
	if _, ok := be.Session(); ok {
		t.Fatal("disabled account must be signed out")
	}
	if res := client.CurrentUser(ctx, false); res.Success {
		t.Fatalf("disabled account must not be cached, got %+v", res)
	}
}

func TestClientUsernameTakenRemotely(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := newBackend(t)
	ctx := context.Background()
	_, _ = be.AddUser(ctx, memory.User{Email: "dan@example.com", Password: "secret123", Username: "dan"})

	client := newClient(t, be, nil)
	defer client.Close()

	res := client.Signup(ctx, authkit.SignupRequest{Email: "dan2@example.com", Password: "secret123", Username: "dan"})
	if res.Success || res.Error != authkit.CodeUsernameInvalid {
		t.Fatalf("expected username-invalid, got %+v", res)
	}
	if res.Message != authkit.Translate("username-taken", authkit.LocaleEN) {
		t.Fatalf("expected taken message, got %q", res.Message)
	}
}

func TestClientMonitorDetectsDeletedIdentity(t *testing.T) {
	defer goleak.VerifyNone(t)

	be := newBackend(t)
	ctx := context.Background()
	id, _ := be.AddUser(ctx, memory.User{Email: "eve@example.com", Password: "secret123", Username: "eve"})

	client := newClient(t, be, func(cfg *authkit.Config) {
		cfg.Monitor.Enabled = true
		cfg.Monitor.Interval = 10 * time.Millisecond
		cfg.Monitor.Timeout = time.Second
	})
	defer client.Close()

	var (
		mu    sync.Mutex
		lost  = make(chan struct{})
		calls []*authkit.UserProfile
	)
	unsubscribe := client.OnAuthStateChange(func(p *authkit.UserProfile) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, p)
		if p == nil && len(calls) == 2 {
			close(lost)
		}
	})
	defer unsubscribe()

	if res := client.Login(ctx, "eve@example.com", "secret123"); !res.Success {
		t.Fatalf("Login failed: %+v", res)
	}
	be.DeleteIdentity(id)

	select {
	case <-lost:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not report the lost session")
	}

	if res := client.CurrentUser(ctx, false); res.Success {
		t.Fatalf("cache must be cleared after session loss, got %+v", res)
	}
	if got := client.MetricsSnapshot().Counters[authkit.MetricSessionExpired]; got != 1 {
		t.Fatalf("expected one session_expired, got %d", got)
	}
}
