package flows

import "context"

// LogoutMetrics carries metric IDs needed by the logout flow.
type LogoutMetrics struct {
	Logout int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	CurrentUserID   func() string
	CacheInvalidate func()
	StopMonitor     func()
	ClearMarker     func(ctx context.Context, id string) error
	SignOut         func(ctx context.Context) error
	OnSignedOut     func()

	Effects Effects
	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  Errors
}

func normalizeLogoutDeps(deps *LogoutDeps) {
	if deps.CurrentUserID == nil {
		deps.CurrentUserID = func() string { return "" }
	}
	if deps.CacheInvalidate == nil {
		deps.CacheInvalidate = func() {}
	}
	if deps.StopMonitor == nil {
		deps.StopMonitor = func() {}
	}
	if deps.OnSignedOut == nil {
		deps.OnSignedOut = func() {}
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunLogout clears local state first, then signs out remotely. Local state
// is gone even when the remote sign-out fails; that error is returned.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	normalizeLogoutDeps(&deps)
	fx := deps.Effects

	if deps.SignOut == nil {
		return deps.Errors.NotReady
	}

	userID := deps.CurrentUserID()
	deps.CacheInvalidate()
	deps.StopMonitor()

	if userID != "" && deps.ClearMarker != nil {
		fx.Detach(ctx, "clear_marker", func(ctx context.Context) error {
			return deps.ClearMarker(ctx, userID)
		})
	}
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.Logout, UserID: userID, Success: true})

	err := deps.SignOut(ctx)
	fx.MetricInc(deps.Metrics.Logout)
	deps.OnSignedOut()
	return err
}
