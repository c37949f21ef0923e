package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/MrEthical07/authkit/avatar"
	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/internal/flows"
	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/internal/tasks"
	"github.com/MrEthical07/authkit/jwt"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// Client is the session-and-identity layer over a hosted [Backend]. It owns
// the identity cache, the rate gate, the audit dispatcher, background
// tasks and the session monitor. A Client is safe for concurrent use.
type Client struct {
	config  Config
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	metrics *Metrics
	cache   *session.Cache
	gate    rate.Gate
	markers session.MarkerStore
	avatars *avatar.Picker
	tasks   *tasks.Runner
	audit   *audit.Dispatcher

	passwordPolicy  validate.PasswordPolicy
	usernameChecker validate.UsernameChecker

	flow flows.Service

	mu       sync.Mutex
	identity Identity
	monitor  *session.Monitor
	closed   bool

	subsMu  sync.RWMutex
	subs    map[uint64]func(*UserProfile)
	nextSub uint64
}

// Close stops the session monitor, waits for detached tasks and drains the
// audit dispatcher. The Client must not be used afterwards, and Close must
// not be called from an OnAuthStateChange subscriber.
func (c *Client) Close() {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	m := c.monitor
	c.mu.Unlock()

	if m != nil {
		m.Stop()
		<-m.Done()
	}
	c.tasks.Close()
	c.audit.Close()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Config returns the configuration the Client was built with.
func (c *Client) Config() Config {
	return c.config
}

// OnAuthStateChange registers fn to receive the profile on sign-in and nil
// on sign-out, disabled account or session loss. Subscribers run
// synchronously in registration order on the goroutine that changed the
// state.
func (c *Client) OnAuthStateChange(fn func(*UserProfile)) (unsubscribe func()) {
	if c == nil || fn == nil {
		return func() {}
	}

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

func (c *Client) notify(profile *UserProfile) {
	c.subsMu.RLock()
	ids := make([]uint64, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(*UserProfile), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.subsMu.RUnlock()

	for _, fn := range fns {
		var p *UserProfile
		if profile != nil {
			cp := *profile
			p = &cp
		}
		c.callSubscriber(fn, p)
	}
}

func (c *Client) callSubscriber(fn func(*UserProfile), p *UserProfile) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("auth state subscriber panicked", "panic", r)
		}
	}()
	fn(p)
}

func (c *Client) currentUserID() string {
	c.mu.Lock()
	id := c.identity.ID
	c.mu.Unlock()
	if id != "" {
		return id
	}
	if entry, ok := c.cache.Peek(); ok {
		return entry.Profile.ID
	}
	return ""
}

func (c *Client) signedIn(ctx context.Context, identity Identity, profile UserProfile) {
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()

	if c.markers != nil {
		id := identity.ID
		ttl := c.config.Marker.TTL
		c.detach(ctx, "set_marker", func(ctx context.Context) error {
			return c.markers.Set(ctx, id, ttl)
		})
	}
	c.startMonitor(identity)
	c.notify(&profile)
}

func (c *Client) signedOut() {
	c.mu.Lock()
	c.identity = Identity{}
	c.mu.Unlock()
	c.notify(nil)
}

func (c *Client) detach(ctx context.Context, name string, fn func(context.Context) error) {
	if !c.tasks.Go(ctx, name, fn) {
		c.logger.Warn("background task dropped", "task", name)
	}
}

// -------- SESSION MONITOR --------

func (c *Client) startMonitor(identity Identity) {
	if !c.config.Monitor.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.monitor != nil {
		c.monitor.Stop()
	}

	var m *session.Monitor
	m = session.StartMonitor(
		session.MonitorConfig{
			Interval: c.config.Monitor.Interval,
			Timeout:  c.config.Monitor.Timeout,
		},
		c.sessionProbe(identity),
		func() { c.sessionLost(m, identity.ID) },
		func(err error) {
			c.logger.Warn("session probe failed", "user_id", identity.ID, "error", err)
		},
	)
	c.monitor = m
}

// stopMonitor only signals; Close waits for the goroutine.
func (c *Client) stopMonitor() {
	c.mu.Lock()
	m := c.monitor
	c.mu.Unlock()
	m.Stop()
}

// sessionProbe runs on the monitor goroutine only, so it may keep the
// latest token in its closure.
func (c *Client) sessionProbe(identity Identity) session.Probe {
	token := identity.AccessToken
	expiresAt := identity.ExpiresAt

	return func(ctx context.Context) error {
		if c.tokenExpired(token, expiresAt) {
			return fmt.Errorf("%w: access token expired", session.ErrSessionLost)
		}

		current, err := c.backend.CurrentIdentity(ctx)
		if errors.Is(err, session.ErrNoSession) {
			return fmt.Errorf("%w: %w", session.ErrSessionLost, err)
		}
		if err != nil {
			return err
		}
		if current.ID != identity.ID {
			return fmt.Errorf("%w: identity changed", session.ErrSessionLost)
		}
		if current.AccessToken != "" {
			token = current.AccessToken
			expiresAt = current.ExpiresAt
		}
		return nil
	}
}

func (c *Client) tokenExpired(token string, expiresAt time.Time) bool {
	leeway := c.config.Monitor.ExpiryLeeway
	now := c.now()
	if _, err := jwt.ExpiresAt(token); err == nil {
		return jwt.Expired(token, now, leeway)
	}
	if expiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(expiresAt)
}

// sessionLost runs on the monitor goroutine. A monitor that was replaced by
// a newer login, or stopped by logout, must not touch the current session.
func (c *Client) sessionLost(m *session.Monitor, identityID string) {
	c.mu.Lock()
	if c.monitor != m || c.identity.ID != identityID {
		c.mu.Unlock()
		return
	}
	c.identity = Identity{}
	c.cache.Invalidate()
	c.mu.Unlock()

	ctx := context.Background()
	if c.markers != nil {
		c.detach(ctx, "clear_marker", func(ctx context.Context) error {
			return c.markers.Clear(ctx, identityID)
		})
	}
	c.metrics.Inc(MetricSessionExpired)
	detectedAt := c.now()
	c.emitAudit(ctx, flows.AuditRecord{
		Event:  auditEventSessionExpired,
		UserID: identityID,
		Metadata: func() map[string]string {
			return map[string]string{"detected_at": auditTime(detectedAt)}
		},
	})
	c.logger.Info("session lost", "user_id", identityID)
	c.notify(nil)
}

// -------- FLOW WIRING --------

func (c *Client) effects() flows.Effects {
	return flows.Effects{
		MetricInc: func(id int) { c.metrics.Inc(MetricID(id)) },
		EmitAudit: c.emitAudit,
		Detach:    c.detach,
		Warn:      c.logger.Warn,
	}
}

func flowErrors() flows.Errors {
	return flows.Errors{
		NotReady:         ErrNotReady,
		MissingFields:    ErrMissingFields,
		InvalidEmail:     ErrInvalidEmail,
		WeakPassword:     ErrWeakPassword,
		UsernameInvalid:  ErrUsernameInvalid,
		UserNotFound:     ErrUserNotFound,
		UserDisabled:     ErrUserDisabled,
		Database:         ErrDatabase,
		NotAuthenticated: ErrNotAuthenticated,
	}
}

func (c *Client) maxAttempts(action string) int {
	rl := c.config.RateLimit
	switch action {
	case flows.ActionLogin:
		return rl.LoginMaxAttempts
	case flows.ActionSignup:
		return rl.SignupMaxAttempts
	case flows.ActionPasswordReset:
		return rl.PasswordResetMaxAttempts
	case flows.ActionPasswordUpdate:
		return rl.PasswordUpdateMaxAttempts
	case flows.ActionProfileUpdate:
		return rl.ProfileUpdateMaxAttempts
	}
	return 0
}

// checkRate fails open on backend errors: the gate is advisory and the
// hosted service enforces its own limits.
func (c *Client) checkRate(ctx context.Context, action string) error {
	err := rate.Enforce(ctx, c.gate, action, c.maxAttempts(action))
	if err == nil {
		return nil
	}
	var limited *rate.LimitedError
	if errors.As(err, &limited) {
		c.metrics.Inc(MetricRateLimitHit)
		return err
	}
	c.logger.Warn("rate gate unavailable, allowing attempt", "action", action, "error", err)
	return nil
}

func (c *Client) resetRate(ctx context.Context, action string) error {
	return c.gate.Reset(ctx, action)
}

func (c *Client) clearMarker() func(context.Context, string) error {
	if c.markers == nil {
		return nil
	}
	return c.markers.Clear
}

func (c *Client) createAccount(ctx context.Context, p flows.AccountParams) (flows.AccountOutcome, error) {
	res, err := c.backend.CreateUserAccount(ctx, CreateAccountParams{
		UserID:      p.UserID,
		Email:       p.Email,
		Name:        p.Name,
		Username:    p.Username,
		PhoneNumber: p.PhoneNumber,
		Avatar:      p.Avatar,
		Role:        p.Role,
	})
	if err != nil {
		return flows.AccountOutcome{}, err
	}
	return flows.AccountOutcome{Success: res.Success, Code: res.Error, Message: res.Message}, nil
}

func (c *Client) updateProfile(ctx context.Context, id string, ch flows.ProfileChanges) (UserProfile, error) {
	return c.backend.UpdateProfile(ctx, id, ProfileFields{
		Name:        ch.Name,
		Username:    ch.Username,
		PhoneNumber: ch.PhoneNumber,
		Avatar:      ch.Avatar,
	})
}

func (c *Client) pickAvatar() string {
	return c.avatars.PickRandom().URL(c.avatars.BaseURL())
}

func (c *Client) buildFlows() flows.Service {
	fx := c.effects()
	errs := flowErrors()

	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Now:             c.now,
			CheckRate:       c.checkRate,
			ResetRate:       c.resetRate,
			Authenticate:    c.backend.Authenticate,
			FetchProfile:    c.backend.FetchProfile,
			SignOut:         c.backend.SignOut,
			RecordLastLogin: c.backend.RecordLastLogin,
			CacheSet:        c.cache.Set,
			CacheInvalidate: c.cache.Invalidate,
			OnSignedIn:      c.signedIn,
			Effects:         fx,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				LoginRateLimited: int(MetricLoginRateLimited),
				LoginDisabled:    int(MetricLoginDisabled),
				ValidationReject: int(MetricValidationRejected),
			},
			Events: flows.LoginEvents{
				LoginSuccess:  auditEventLogin,
				LoginFailure:  auditEventLoginFailed,
				LoginDisabled: auditEventLoginDisabled,
				RateLimited:   auditEventRateLimited,
			},
			Errors: errs,
		},
		Signup: flows.SignupDeps{
			Now:               c.now,
			DefaultRole:       c.config.Signup.DefaultRole,
			RollbackAttempts:  c.config.Signup.RollbackAttempts,
			RollbackBackoff:   c.config.Signup.RollbackBackoff,
			CheckRate:         c.checkRate,
			PasswordPolicy:    c.passwordPolicy,
			UsernameChecker:   c.usernameChecker,
			CreateIdentity:    c.backend.CreateIdentity,
			PickAvatar:        c.pickAvatar,
			CreateAccount:     c.createAccount,
			DeactivateProfile: c.backend.DeactivateProfile,
			Effects:           fx,
			Metrics: flows.SignupMetrics{
				SignupSuccess:     int(MetricSignupSuccess),
				SignupFailure:     int(MetricSignupFailure),
				SignupRateLimited: int(MetricSignupRateLimited),
				SignupRollback:    int(MetricSignupRollback),
				RollbackFailed:    int(MetricSignupRollbackFailed),
				ValidationReject:  int(MetricValidationRejected),
			},
			Events: flows.SignupEvents{
				SignupSuccess:  auditEventSignup,
				SignupFailure:  auditEventSignupFailed,
				SignupRollback: auditEventSignupRollback,
				RateLimited:    auditEventRateLimited,
			},
			Errors: errs,
		},
		Logout: flows.LogoutDeps{
			CurrentUserID:   c.currentUserID,
			CacheInvalidate: c.cache.Invalidate,
			StopMonitor:     c.stopMonitor,
			ClearMarker:     c.clearMarker(),
			SignOut:         c.backend.SignOut,
			OnSignedOut:     c.signedOut,
			Effects:         fx,
			Metrics:         flows.LogoutMetrics{Logout: int(MetricLogout)},
			Events:          flows.LogoutEvents{Logout: auditEventLogout},
			Errors:          errs,
		},
		PasswordReset: flows.PasswordResetDeps{
			RedirectURL:        c.config.PasswordReset.RedirectURL,
			CheckRate:          c.checkRate,
			ResetPasswordEmail: c.backend.ResetPasswordEmail,
			Effects:            fx,
			Metrics: flows.PasswordResetMetrics{
				PasswordResetRequest: int(MetricPasswordResetRequest),
				RateLimited:          int(MetricPasswordRateLimited),
				ValidationReject:     int(MetricValidationRejected),
			},
			Events: flows.PasswordResetEvents{
				PasswordResetRequest: auditEventPasswordResetRequest,
				RateLimited:          auditEventRateLimited,
			},
			Errors: errs,
		},
		PasswordUpdate: flows.PasswordUpdateDeps{
			CurrentUserID:  c.currentUserID,
			CheckRate:      c.checkRate,
			PasswordPolicy: c.passwordPolicy,
			UpdatePassword: c.backend.UpdatePassword,
			Effects:        fx,
			Metrics: flows.PasswordUpdateMetrics{
				PasswordUpdate:   int(MetricPasswordUpdate),
				RateLimited:      int(MetricPasswordRateLimited),
				ValidationReject: int(MetricValidationRejected),
			},
			Events: flows.PasswordUpdateEvents{
				PasswordUpdate: auditEventPasswordUpdate,
				RateLimited:    auditEventRateLimited,
			},
			Errors: errs,
		},
		CurrentUser: flows.CurrentUserDeps{
			CacheGet:        c.cache.Get,
			CacheSet:        c.cache.Set,
			CacheInvalidate: c.cache.Invalidate,
			CurrentIdentity: c.backend.CurrentIdentity,
			FetchProfile:    c.backend.FetchProfile,
			SignOut:         c.backend.SignOut,
			OnSignedOut:     c.signedOut,
			Effects:         fx,
			Metrics: flows.CurrentUserMetrics{
				CacheHit:  int(MetricCacheHit),
				CacheMiss: int(MetricCacheMiss),
			},
			Errors: errs,
		},
		ProfileUpdate: flows.ProfileUpdateDeps{
			CurrentProfile: func(ctx context.Context) (*UserProfile, error) {
				return c.flow.CurrentUser(ctx, false)
			},
			CheckRate:       c.checkRate,
			UsernameChecker: c.usernameChecker,
			UpdateProfile:   c.updateProfile,
			CacheInvalidate: c.cache.Invalidate,
			Effects:         fx,
			Metrics: flows.ProfileUpdateMetrics{
				ProfileUpdate:    int(MetricProfileUpdate),
				RateLimited:      int(MetricProfileRateLimited),
				ValidationReject: int(MetricValidationRejected),
			},
			Events: flows.ProfileUpdateEvents{
				ProfileUpdate: auditEventProfileUpdate,
				RateLimited:   auditEventRateLimited,
			},
			Errors: errs,
		},
	})
}

// backendUsernameChecker adapts the validate_username procedure.
type backendUsernameChecker struct {
	procs Procedures
}

func (b backendUsernameChecker) CheckUsername(ctx context.Context, username string) (validate.UsernameVerdict, error) {
	res, err := b.procs.ValidateUsername(ctx, username)
	if err != nil {
		return validate.UsernameVerdict{}, err
	}
	return validate.UsernameVerdict{Valid: res.Valid, Reason: res.Error}, nil
}
