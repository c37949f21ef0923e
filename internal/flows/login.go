package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginDisabled    int
	ValidationReject int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess  string
	LoginFailure  string
	LoginDisabled string
	RateLimited   string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now func() time.Time

	CheckRate func(ctx context.Context, action string) error
	ResetRate func(ctx context.Context, action string) error

	Authenticate    func(ctx context.Context, email, password string) (session.Identity, error)
	FetchProfile    func(ctx context.Context, id string) (session.UserProfile, error)
	SignOut         func(ctx context.Context) error
	RecordLastLogin func(ctx context.Context, id string, at time.Time) error

	CacheSet        func(session.UserProfile)
	CacheInvalidate func()
	OnSignedIn      func(context.Context, session.Identity, session.UserProfile)

	Effects Effects
	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CheckRate == nil {
		deps.CheckRate = noRate
	}
	if deps.ResetRate == nil {
		deps.ResetRate = noRate
	}
	if deps.SignOut == nil {
		deps.SignOut = func(context.Context) error { return nil }
	}
	if deps.CacheSet == nil {
		deps.CacheSet = func(session.UserProfile) {}
	}
	if deps.CacheInvalidate == nil {
		deps.CacheInvalidate = func() {}
	}
	if deps.OnSignedIn == nil {
		deps.OnSignedIn = func(context.Context, session.Identity, session.UserProfile) {}
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunLogin validates input, checks the rate gate, authenticates, loads and
// checks the profile, then caches it. An inactive profile is signed out
// even though authentication succeeded.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*session.UserProfile, error) {
	normalizeLoginDeps(&deps)
	fx := deps.Effects

	if deps.Authenticate == nil || deps.FetchProfile == nil {
		return nil, deps.Errors.NotReady
	}

	if strings.TrimSpace(email) == "" || password == "" {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return nil, deps.Errors.MissingFields
	}
	checked := validate.Email(email)
	if !checked.Valid {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return nil, invalid(deps.Errors.InvalidEmail, "email", checked.Reason)
	}
	email = checked.Value

	if err := deps.CheckRate(ctx, ActionLogin); err != nil {
		fx.MetricInc(deps.Metrics.LoginRateLimited)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.RateLimited, Target: email, Err: err, Metadata: func() map[string]string {
			return map[string]string{"action": ActionLogin}
		}})
		return nil, err
	}

	identity, err := deps.Authenticate(ctx, email, password)
	if err != nil {
		fx.MetricInc(deps.Metrics.LoginFailure)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.LoginFailure, Target: email, Err: err})
		return nil, err
	}

	profile, err := deps.FetchProfile(ctx, identity.ID)
	if err != nil {
		fx.MetricInc(deps.Metrics.LoginFailure)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.LoginFailure, UserID: identity.ID, Target: email, Err: err})
		if errors.Is(err, session.ErrProfileNotFound) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, storeError(deps.Errors.Database, err)
	}

	if !profile.IsActive {
		if err := deps.SignOut(ctx); err != nil {
			fx.Warn("sign-out of disabled account failed", "user_id", profile.ID, "error", err)
		}
		deps.CacheInvalidate()
		fx.MetricInc(deps.Metrics.LoginDisabled)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.LoginDisabled, UserID: profile.ID, Target: email, Err: deps.Errors.UserDisabled})
		return nil, deps.Errors.UserDisabled
	}

	now := deps.Now().UTC()
	profile.LastLogin = now
	deps.CacheSet(profile)

	if err := deps.ResetRate(ctx, ActionLogin); err != nil {
		fx.Warn("rate reset failed", "action", ActionLogin, "error", err)
	}
	if deps.RecordLastLogin != nil {
		userID := profile.ID
		fx.Detach(ctx, "last_login", func(ctx context.Context) error {
			return deps.RecordLastLogin(ctx, userID, now)
		})
	}

	fx.MetricInc(deps.Metrics.LoginSuccess)
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.LoginSuccess, UserID: profile.ID, Target: email, Success: true})
	deps.OnSignedIn(ctx, identity, profile)

	return &profile, nil
}
