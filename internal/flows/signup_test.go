package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

const (
	mSignupSuccess = iota + 100
	mSignupFailure
	mSignupRateLimited
	mSignupRollback
	mRollbackFailed
)

type signupFixture struct {
	rec           *recorder
	outcome       AccountOutcome
	accountErr    error
	identityErr   error
	deactivateErr []error
	params        AccountParams
	meta          map[string]string
	deactivated   int
}

func newSignupFixture() *signupFixture {
	return &signupFixture{rec: newRecorder(), outcome: AccountOutcome{Success: true}}
}

func (f *signupFixture) deps() SignupDeps {
	return SignupDeps{
		Now:              fixedClock(),
		RollbackAttempts: 3,
		RollbackBackoff:  time.Millisecond,
		CheckRate: func(context.Context, string) error {
			f.rec.call("rate")
			return nil
		},
		UsernameChecker: validate.UsernameCheckerFunc(func(_ context.Context, u string) (validate.UsernameVerdict, error) {
			f.rec.call("check_username")
			return validate.UsernameVerdict{Valid: u != "taken"}, nil
		}),
		CreateIdentity: func(_ context.Context, email, _ string, meta map[string]string) (session.Identity, error) {
			f.rec.call("create_identity")
			f.meta = meta
			if f.identityErr != nil {
				return session.Identity{}, f.identityErr
			}
			return session.Identity{ID: "new-user", Email: email}, nil
		},
		PickAvatar: func() string {
			f.rec.call("avatar")
			return "https://img.example.com/adventurer/svg?seed=felix"
		},
		CreateAccount: func(_ context.Context, p AccountParams) (AccountOutcome, error) {
			f.rec.call("create_account")
			f.params = p
			return f.outcome, f.accountErr
		},
		DeactivateProfile: func(context.Context, string) error {
			f.rec.call("deactivate")
			f.deactivated++
			if len(f.deactivateErr) > 0 {
				err := f.deactivateErr[0]
				f.deactivateErr = f.deactivateErr[1:]
				return err
			}
			return nil
		},
		Effects: f.rec.effects(),
		Metrics: SignupMetrics{
			SignupSuccess:     mSignupSuccess,
			SignupFailure:     mSignupFailure,
			SignupRateLimited: mSignupRateLimited,
			SignupRollback:    mSignupRollback,
			RollbackFailed:    mRollbackFailed,
			ValidationReject:  mValidation,
		},
		Events: SignupEvents{
			SignupSuccess:  "signup",
			SignupFailure:  "signup_failed",
			SignupRollback: "signup_rollback",
			RateLimited:    "rate_limited",
		},
		Errors: testErrors,
	}
}

func validSignup() SignupRequest {
	return SignupRequest{
		Email:       "New.User@Example.com",
		Password:    "long-enough",
		Name:        " New User ",
		Username:    "New_User",
		PhoneNumber: " +84 90 000 0000 ",
	}
}

func TestSignupSuccess(t *testing.T) {
	f := newSignupFixture()
	profile, err := RunSignup(context.Background(), validSignup(), f.deps())
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	want := []string{"rate", "check_username", "create_identity", "avatar", "create_account"}
	if got := f.rec.Calls(); !sameCalls(got, want) {
		t.Fatalf("unexpected call order %v, want %v", got, want)
	}

	if f.params.UserID != "new-user" || f.params.Email != "new.user@example.com" || f.params.Username != "new_user" {
		t.Fatalf("unexpected procedure params %+v", f.params)
	}
	if f.params.Name != "New User" || f.params.PhoneNumber != "+84 90 000 0000" || f.params.Role != session.RoleMember {
		t.Fatalf("unexpected procedure params %+v", f.params)
	}
	if f.meta["username"] != "new_user" {
		t.Fatalf("expected identity metadata, got %v", f.meta)
	}
	if profile.ID != "new-user" || !profile.IsActive || profile.Avatar == "" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if _, ok := f.rec.audit("signup"); !ok {
		t.Fatal("expected signup audit")
	}
}

func TestSignupNameDefaultsToUsername(t *testing.T) {
	f := newSignupFixture()
	req := validSignup()
	req.Name = "  "
	if _, err := RunSignup(context.Background(), req, f.deps()); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if f.params.Name != "new_user" {
		t.Fatalf("expected username as display name, got %q", f.params.Name)
	}
}

func TestSignupValidationOrder(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SignupRequest)
		want   error
	}{
		{"missing email", func(r *SignupRequest) { r.Email = "" }, testErrors.MissingFields},
		{"missing username", func(r *SignupRequest) { r.Username = " " }, testErrors.MissingFields},
		{"weak password before bad email", func(r *SignupRequest) { r.Password = "short"; r.Email = "bad" }, testErrors.WeakPassword},
		{"disposable email", func(r *SignupRequest) { r.Email = "x@mailinator.com" }, testErrors.InvalidEmail},
		{"username taken", func(r *SignupRequest) { r.Username = "taken" }, testErrors.UsernameInvalid},
		{"username format", func(r *SignupRequest) { r.Username = "a" }, testErrors.UsernameInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSignupFixture()
			req := validSignup()
			tc.mutate(&req)

			_, err := RunSignup(context.Background(), req, f.deps())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if f.rec.called("create_identity") {
				t.Fatal("validation failure must not create an identity")
			}
		})
	}
}

func TestSignupRateLimitedBeforeValidation(t *testing.T) {
	f := newSignupFixture()
	deps := f.deps()
	deps.CheckRate = gateCheck(rate.NewMemory(time.Minute, nil), 1)

	req := validSignup()
	req.Password = "x"
	_, _ = RunSignup(context.Background(), req, deps)

	_, err := RunSignup(context.Background(), validSignup(), deps)
	if !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if f.rec.count(mSignupRateLimited) != 1 {
		t.Fatal("expected signup rate-limit metric")
	}
}

func TestSignupRollbackOnProcedureError(t *testing.T) {
	f := newSignupFixture()
	f.accountErr = errors.New("statement timeout")
	deps := f.deps()
	deps.CheckRate = nil

	profile, err := RunSignup(context.Background(), validSignup(), deps)
	if !errors.Is(err, testErrors.Database) {
		t.Fatalf("expected database error, got %v", err)
	}
	if profile != nil {
		t.Fatal("failed signup must not return a profile")
	}
	if f.deactivated != 1 {
		t.Fatalf("expected one rollback attempt, got %d", f.deactivated)
	}
	for _, c := range f.rec.Calls() {
		if c == "signout" {
			t.Fatal("signup rollback must not sign out")
		}
	}
	if a, ok := f.rec.audit("signup_rollback"); !ok || !a.Success {
		t.Fatalf("expected successful rollback audit, got %+v", a)
	}
	if f.rec.count(mSignupRollback) != 1 || f.rec.count(mRollbackFailed) != 0 {
		t.Fatal("unexpected rollback metrics")
	}
}

func TestSignupRollbackOnReportedFailure(t *testing.T) {
	f := newSignupFixture()
	f.outcome = AccountOutcome{Success: false, Code: "username_taken", Message: "duplicate key"}

	_, err := RunSignup(context.Background(), validSignup(), f.deps())
	var perr *ProcedureError
	if !errors.As(err, &perr) || perr.Code != "username_taken" {
		t.Fatalf("expected procedure error passthrough, got %v", err)
	}
	if !errors.Is(err, testErrors.Database) {
		t.Fatal("procedure error must still match the database sentinel")
	}
	if f.deactivated != 1 {
		t.Fatal("expected soft rollback")
	}
}

func TestSignupReportedFailureWithoutCode(t *testing.T) {
	f := newSignupFixture()
	f.outcome = AccountOutcome{Success: false}

	if _, err := RunSignup(context.Background(), validSignup(), f.deps()); err != testErrors.Database {
		t.Fatalf("expected bare database error, got %v", err)
	}
}

func TestSignupRollbackRetriesThenGivesUp(t *testing.T) {
	f := newSignupFixture()
	f.accountErr = errors.New("boom")
	f.deactivateErr = []error{errors.New("e1"), errors.New("e2"), errors.New("e3"), errors.New("e4")}

	_, err := RunSignup(context.Background(), validSignup(), f.deps())
	if !errors.Is(err, testErrors.Database) {
		t.Fatalf("rollback failure must not change the result, got %v", err)
	}
	if f.deactivated != 3 {
		t.Fatalf("expected 3 rollback attempts, got %d", f.deactivated)
	}
	if f.rec.count(mRollbackFailed) != 1 {
		t.Fatal("expected rollback failure metric")
	}
	if a, ok := f.rec.audit("signup_rollback"); !ok || a.Success {
		t.Fatalf("expected failed rollback audit, got %+v", a)
	}
}

func TestSignupRollbackRecoversOnRetry(t *testing.T) {
	f := newSignupFixture()
	f.accountErr = errors.New("boom")
	f.deactivateErr = []error{errors.New("transient")}

	_, _ = RunSignup(context.Background(), validSignup(), f.deps())
	if f.deactivated != 2 {
		t.Fatalf("expected retry to succeed on second attempt, got %d", f.deactivated)
	}
	if f.rec.count(mRollbackFailed) != 0 {
		t.Fatal("recovered rollback must not count as failed")
	}
}

func TestSignupRollbackSurvivesCanceledCaller(t *testing.T) {
	f := newSignupFixture()
	deps := f.deps()
	ctx, cancel := context.WithCancel(context.Background())
	deps.CreateAccount = func(context.Context, AccountParams) (AccountOutcome, error) {
		cancel()
		return AccountOutcome{}, context.Canceled
	}

	_, _ = RunSignup(ctx, validSignup(), deps)
	if f.deactivated != 1 {
		t.Fatal("rollback must run even after the caller gave up")
	}
}

func TestSignupIdentityErrorPassesThrough(t *testing.T) {
	f := newSignupFixture()
	f.identityErr = errors.New("user_already_exists")

	_, err := RunSignup(context.Background(), validSignup(), f.deps())
	if err != f.identityErr {
		t.Fatalf("expected provider error passthrough, got %v", err)
	}
	if f.rec.called("create_account") || f.deactivated != 0 {
		t.Fatal("nothing to roll back when the identity was never created")
	}
}
