package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authkit/session"
)

// CurrentUserMetrics carries metric IDs needed by the current-user flow.
type CurrentUserMetrics struct {
	CacheHit  int
	CacheMiss int
}

// CurrentUserDeps captures current-user dependencies.
type CurrentUserDeps struct {
	CacheGet        func(forceRefresh bool) (session.UserProfile, bool)
	CacheSet        func(session.UserProfile)
	CacheInvalidate func()

	CurrentIdentity func(ctx context.Context) (session.Identity, error)
	FetchProfile    func(ctx context.Context, id string) (session.UserProfile, error)
	SignOut         func(ctx context.Context) error
	OnSignedOut     func()

	Effects Effects
	Metrics CurrentUserMetrics
	Errors  Errors
}

func normalizeCurrentUserDeps(deps *CurrentUserDeps) {
	if deps.CacheGet == nil {
		deps.CacheGet = func(bool) (session.UserProfile, bool) { return session.UserProfile{}, false }
	}
	if deps.CacheSet == nil {
		deps.CacheSet = func(session.UserProfile) {}
	}
	if deps.CacheInvalidate == nil {
		deps.CacheInvalidate = func() {}
	}
	if deps.SignOut == nil {
		deps.SignOut = func(context.Context) error { return nil }
	}
	if deps.OnSignedOut == nil {
		deps.OnSignedOut = func() {}
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunCurrentUser serves the profile from the cache when fresh, otherwise
// re-reads it from the backend and caches it.
func RunCurrentUser(ctx context.Context, forceRefresh bool, deps CurrentUserDeps) (*session.UserProfile, error) {
	normalizeCurrentUserDeps(&deps)
	fx := deps.Effects

	if profile, ok := deps.CacheGet(forceRefresh); ok {
		fx.MetricInc(deps.Metrics.CacheHit)
		return &profile, nil
	}
	fx.MetricInc(deps.Metrics.CacheMiss)

	if deps.CurrentIdentity == nil || deps.FetchProfile == nil {
		return nil, deps.Errors.NotReady
	}

	identity, err := deps.CurrentIdentity(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, deps.Errors.NotAuthenticated
		}
		return nil, err
	}

	profile, err := deps.FetchProfile(ctx, identity.ID)
	if err != nil {
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
		deps.OnSignedOut()
		return nil, deps.Errors.UserDisabled
	}

	deps.CacheSet(profile)
	return &profile, nil
}
