package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/oops"

	"github.com/MrEthical07/authkit/backend"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestBackend(t *testing.T) (*Backend, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b, err := New(Config{
		TokenTTL:   10 * time.Minute,
		SigningKey: []byte("test-signing-key-0123456789abcdef"),
		Now:        clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b, clock
}

func codeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

func TestAddUserAndAuthenticate(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()

	id, err := b.AddUser(ctx, User{Email: "Ann@Example.com", Password: "secret123", Username: "ann"})
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	ident, err := b.Authenticate(ctx, "ann@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if ident.ID != id || ident.Email != "ann@example.com" || ident.AccessToken == "" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
	if want := clock.Now().Add(10 * time.Minute); !ident.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, ident.ExpiresAt)
	}

	profile, err := b.FetchProfile(ctx, id)
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.Name != "ann" || profile.Role != session.RoleMember || !profile.IsActive {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	if _, err := b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	for _, tc := range []struct{ email, pw string }{
		{"ann@example.com", "wrong-pass"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := b.Authenticate(ctx, tc.email, tc.pw)
		if codeOf(err) != CodeInvalidCredentials {
			t.Fatalf("%s: expected %s, got %v", tc.email, CodeInvalidCredentials, err)
		}
	}
	if _, ok := b.Session(); ok {
		t.Fatal("failed logins must not hold a session")
	}
}

func TestCreateIdentityErrors(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	if _, err := b.CreateIdentity(ctx, "ann@example.com", "123", nil); codeOf(err) != CodeWeakPassword {
		t.Fatalf("expected %s, got %v", CodeWeakPassword, err)
	}
	if _, err := b.CreateIdentity(ctx, "ann@example.com", "secret123", nil); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if _, err := b.CreateIdentity(ctx, "ANN@example.com", "secret123", nil); codeOf(err) != CodeUserExists {
		t.Fatalf("expected %s, got %v", CodeUserExists, err)
	}
	if _, ok := b.Session(); ok {
		t.Fatal("CreateIdentity must not sign in")
	}
}

func TestCurrentIdentityLifecycle(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()
	id, _ := b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})

	if _, err := b.CurrentIdentity(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if _, err := b.Authenticate(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	cur, err := b.CurrentIdentity(ctx)
	if err != nil || cur.ID != id {
		t.Fatalf("CurrentIdentity: %+v %v", cur, err)
	}

	clock.Advance(11 * time.Minute)
	if _, err := b.CurrentIdentity(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected expired token to drop session, got %v", err)
	}
	if _, ok := b.Session(); ok {
		t.Fatal("expired session must be dropped")
	}
}

func TestCurrentIdentityAfterDeleteAndSignOut(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	id, _ := b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})

	if _, err := b.Authenticate(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	b.DeleteIdentity(id)
	if _, err := b.CurrentIdentity(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession for deleted identity, got %v", err)
	}

	if _, err := b.AddUser(ctx, User{Email: "bob@example.com", Password: "secret123", Username: "bob"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := b.Authenticate(ctx, "bob@example.com", "secret123"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := b.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := b.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
	if _, err := b.CurrentIdentity(ctx); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession after sign-out, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	_, _ = b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})

	if err := b.UpdatePassword(ctx, "newsecret1"); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	_, _ = b.Authenticate(ctx, "ann@example.com", "secret123")
	if err := b.UpdatePassword(ctx, "secret123"); codeOf(err) != CodeSamePassword {
		t.Fatalf("expected %s, got %v", CodeSamePassword, err)
	}
	if err := b.UpdatePassword(ctx, "abc"); codeOf(err) != CodeWeakPassword {
		t.Fatalf("expected %s, got %v", CodeWeakPassword, err)
	}
	if err := b.UpdatePassword(ctx, "newsecret1"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	if _, err := b.Authenticate(ctx, "ann@example.com", "secret123"); codeOf(err) != CodeInvalidCredentials {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := b.Authenticate(ctx, "ann@example.com", "newsecret1"); err != nil {
		t.Fatalf("new password: %v", err)
	}
}

func TestProfileUpdates(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()
	id, _ := b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})
	_, _ = b.AddUser(ctx, User{Email: "bob@example.com", Password: "secret123", Username: "bob"})

	taken := "bob"
	if _, err := b.UpdateProfile(ctx, id, backend.ProfileFields{Username: &taken}); codeOf(err) != CodeUsernameTaken {
		t.Fatalf("expected %s, got %v", CodeUsernameTaken, err)
	}

	clock.Advance(time.Minute)
	name, phone := "Ann B", "+84901234567"
	p, err := b.UpdateProfile(ctx, id, backend.ProfileFields{Name: &name, PhoneNumber: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.Name != name || p.PhoneNumber != phone || p.Username != "ann" || !p.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := b.UpdateProfile(ctx, "missing", backend.ProfileFields{Name: &name}); !errors.Is(err, session.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	at := clock.Now().Add(time.Hour)
	if err := b.RecordLastLogin(ctx, id, at); err != nil {
		t.Fatalf("RecordLastLogin: %v", err)
	}
	if err := b.DeactivateProfile(ctx, id); err != nil {
		t.Fatalf("DeactivateProfile: %v", err)
	}
	p, _ = b.FetchProfile(ctx, id)
	if p.IsActive || !p.LastLogin.Equal(at) {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if err := b.DeactivateProfile(ctx, "missing"); err != nil {
		t.Fatalf("deactivating a missing row should be a no-op, got %v", err)
	}
}

func TestProcedures(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	ident, _ := b.CreateIdentity(ctx, "ann@example.com", "secret123", nil)

	res, err := b.CreateUserAccount(ctx, backend.CreateAccountParams{UserID: "nope", Username: "x"})
	if err != nil || res.Success || res.Error != CodeUserNotFound {
		t.Fatalf("expected %s, got %+v %v", CodeUserNotFound, res, err)
	}

	res, err = b.CreateUserAccount(ctx, backend.CreateAccountParams{UserID: ident.ID, Email: ident.Email, Username: "ann", Role: session.RoleAdmin})
	if err != nil || !res.Success {
		t.Fatalf("CreateUserAccount: %+v %v", res, err)
	}
	p, _ := b.FetchProfile(ctx, ident.ID)
	if !p.IsAdmin() {
		t.Fatalf("expected admin role, got %+v", p)
	}

	check, _ := b.ValidateUsername(ctx, "ANN")
	if check.Valid || check.Error != validate.ReasonUsernameTaken {
		t.Fatalf("expected taken, got %+v", check)
	}
	check, _ = b.ValidateUsername(ctx, "carol")
	if !check.Valid {
		t.Fatalf("expected free, got %+v", check)
	}

	extra := map[string]string{"k": "v"}
	_ = b.LogUserAction(ctx, backend.ActionLog{UserID: ident.ID, Action: "login", ExtraData: extra})
	extra["k"] = "mutated"
	actions := b.Actions()
	if len(actions) != 1 || actions[0].ExtraData["k"] != "v" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestFailCreateAccount(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	ident, _ := b.CreateIdentity(ctx, "ann@example.com", "secret123", nil)

	b.FailCreateAccount("db_down", "boom")
	res, err := b.CreateUserAccount(ctx, backend.CreateAccountParams{UserID: ident.ID, Username: "ann"})
	if err != nil || res.Success || res.Error != "db_down" {
		t.Fatalf("expected injected failure, got %+v %v", res, err)
	}
	if _, err := b.FetchProfile(ctx, ident.ID); !errors.Is(err, session.ErrProfileNotFound) {
		t.Fatalf("failed procedure must not insert, got %v", err)
	}

	b.OnCreateAccount(nil)
	res, _ = b.CreateUserAccount(ctx, backend.CreateAccountParams{UserID: ident.ID, Username: "ann"})
	if !res.Success {
		t.Fatalf("expected success after clearing hook, got %+v", res)
	}
}

func TestResetRequestsRecorded(t *testing.T) {
	b, _ := newTestBackend(t)
	if err := b.ResetPasswordEmail(context.Background(), " Who@Example.com ", "https://x"); err != nil {
		t.Fatalf("ResetPasswordEmail: %v", err)
	}
	if got := b.ResetRequests(); len(got) != 1 || got[0] != "who@example.com" {
		t.Fatalf("unexpected resets: %v", got)
	}
}

func TestResetLinkRedeem(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	if _, err := b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	if err := b.ResetPasswordEmail(ctx, "nobody@example.com", ""); err != nil {
		t.Fatalf("unknown address must be accepted: %v", err)
	}
	if _, ok := b.ResetLink("nobody@example.com"); ok {
		t.Fatal("unknown address must not get a link")
	}

	_ = b.ResetPasswordEmail(ctx, "ann@example.com", "")
	link, ok := b.ResetLink("ANN@example.com")
	if !ok {
		t.Fatal("expected a recovery link")
	}
	if err := b.ConfirmReset(ctx, link, "abc"); codeOf(err) != CodeWeakPassword {
		t.Fatalf("expected weak password, got %v", err)
	}
	if err := b.ConfirmReset(ctx, link, "brand-new-1"); err != nil {
		t.Fatalf("ConfirmReset: %v", err)
	}
	if err := b.ConfirmReset(ctx, link, "brand-new-2"); codeOf(err) != CodeLinkExpired {
		t.Fatalf("link must be single-use, got %v", err)
	}
	if _, ok := b.ResetLink("ann@example.com"); ok {
		t.Fatal("redeemed link must be cleared")
	}
	if _, err := b.Authenticate(ctx, "ann@example.com", "brand-new-1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestResetLinkExpiryAndReplacement(t *testing.T) {
	b, clock := newTestBackend(t)
	ctx := context.Background()
	_, _ = b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})

	_ = b.ResetPasswordEmail(ctx, "ann@example.com", "")
	first, _ := b.ResetLink("ann@example.com")
	_ = b.ResetPasswordEmail(ctx, "ann@example.com", "")
	second, _ := b.ResetLink("ann@example.com")
	if first == second {
		t.Fatal("expected a fresh link")
	}
	if err := b.ConfirmReset(ctx, first, "brand-new-1"); codeOf(err) != CodeLinkExpired {
		t.Fatalf("replaced link must be dead, got %v", err)
	}

	clock.Advance(2 * time.Hour)
	if err := b.ConfirmReset(ctx, second, "brand-new-1"); codeOf(err) != CodeLinkExpired {
		t.Fatalf("expired link must be rejected, got %v", err)
	}
	if err := b.ConfirmReset(ctx, "garbage", "brand-new-1"); codeOf(err) != CodeLinkExpired {
		t.Fatalf("malformed link must be rejected, got %v", err)
	}
}

func TestConcurrentAuthenticate(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	_, _ = b.AddUser(ctx, User{Email: "ann@example.com", Password: "secret123", Username: "ann"})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = b.Authenticate(ctx, "ann@example.com", "secret123")
			_, _ = b.CurrentIdentity(ctx)
		}()
	}
	wg.Wait()

	if _, ok := b.Session(); !ok {
		t.Fatal("expected a held session")
	}
}
