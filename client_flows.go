package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authkit/internal/flows"
	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/samber/oops"
)

// Login signs in with email and password, loads and checks the profile,
// and caches it. A disabled profile is signed out again.
func (c *Client) Login(ctx context.Context, email, password string) Result {
	return c.run(ctx, "login", MsgLoginSuccess, func(ctx context.Context) (*UserProfile, error) {
		return c.flow.Login(ctx, email, password)
	})
}

// Signup creates the auth identity and the profile row. The caller is not
// signed in afterwards and must call Login.
func (c *Client) Signup(ctx context.Context, req SignupRequest) Result {
	return c.run(ctx, "signup", MsgSignupSuccess, func(ctx context.Context) (*UserProfile, error) {
		return c.flow.Signup(ctx, req)
	})
}

// Logout clears local session state and signs out remotely. Local state is
// cleared even when the remote call fails.
func (c *Client) Logout(ctx context.Context) Result {
	return c.run(ctx, "logout", MsgLogoutSuccess, func(ctx context.Context) (*UserProfile, error) {
		return nil, c.flow.Logout(ctx)
	})
}

// RequestPasswordReset asks the service to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) Result {
	return c.run(ctx, "password_reset", MsgResetEmailSent, func(ctx context.Context) (*UserProfile, error) {
		return nil, c.flow.RequestPasswordReset(ctx, email)
	})
}

// UpdatePassword changes the signed-in identity's password.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) Result {
	return c.run(ctx, "password_update", MsgPasswordUpdated, func(ctx context.Context) (*UserProfile, error) {
		return nil, c.flow.UpdatePassword(ctx, newPassword)
	})
}

// CurrentUser returns the signed-in profile, from the cache when fresh and
// forceRefresh is false.
func (c *Client) CurrentUser(ctx context.Context, forceRefresh bool) Result {
	return c.run(ctx, "current_user", "", func(ctx context.Context) (*UserProfile, error) {
		return c.flow.CurrentUser(ctx, forceRefresh)
	})
}

// UpdateProfile writes the non-nil fields of update to the signed-in
// profile and drops the cached copy.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	return c.run(ctx, "profile_update", MsgProfileUpdated, func(ctx context.Context) (*UserProfile, error) {
		return c.flow.UpdateProfile(ctx, flows.ProfileChanges{
			Name:        update.Name,
			Username:    update.Username,
			PhoneNumber: update.PhoneNumber,
			Avatar:      update.Avatar,
		})
	})
}

// run is the flow boundary: no panic or raw error escapes it.
func (c *Client) run(ctx context.Context, name string, success ErrorCode, fn func(context.Context) (*UserProfile, error)) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c == nil || !c.flow.Initialized() {
		locale := localeFromContext(ctx, LocaleEN)
		return Result{Error: CodeUnexpected, Message: Translate(CodeUnexpected, locale), Err: ErrNotReady}
	}

	locale := localeFromContext(ctx, c.config.Locale)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic in %s: %v", ErrUnexpected, name, r)
			c.logger.Error("auth flow panicked", "flow", name, "panic", r)
			res = Result{Error: CodeUnexpected, Message: Translate(CodeUnexpected, locale), Err: err}
		}
		c.metrics.Observe(MetricFlowLatency, time.Since(start))
	}()

	user, err := fn(ctx)
	if err != nil {
		code, msg := c.describe(err, locale)
		if code == CodeUnexpected || code == CodeDatabase {
			logError(c.logger, "auth flow failed", err, "flow", name, "result_code", string(code))
		}
		return Result{Error: code, Message: msg, Err: err}
	}

	res = Result{Success: true, User: user}
	if success != "" {
		res.Message = Translate(success, locale)
	}
	return res
}

// classify maps err to the code reported in Result.Error.
func (c *Client) classify(err error) ErrorCode {
	code, _ := classifyError(err)
	return code
}

// describe returns the code and the localized message for err.
func (c *Client) describe(err error, locale Locale) (ErrorCode, string) {
	var limited *rate.LimitedError
	if errors.As(err, &limited) {
		return CodeRateLimited, RateLimitMessage(limited.Wait, locale)
	}
	code, key := classifyError(err)
	return code, Translate(key, locale)
}

// classifyError returns the result code and the translation key, which is
// the more specific validator reason when one is known.
func classifyError(err error) (code ErrorCode, key ErrorCode) {
	if err == nil {
		return "", ""
	}

	var verr *flows.ValidationError
	if errors.As(err, &verr) {
		code = sentinelCode(verr.Err)
		if reason := ErrorCode(verr.Reason); reason != "" && Known(reason) {
			return code, reason
		}
		return code, code
	}

	var perr *flows.ProcedureError
	if errors.As(err, &perr) && perr.Code != "" {
		code = ErrorCode(perr.Code)
		return code, code
	}

	if code = sentinelCode(err); code != CodeUnexpected {
		return code, code
	}

	if oopsErr, ok := oops.AsOops(err); ok {
		if s, ok := oopsErr.Code().(string); ok && s != "" {
			code = ErrorCode(s)
			return code, code
		}
	}

	return CodeUnexpected, CodeUnexpected
}

func sentinelCode(err error) ErrorCode {
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeUnexpected
}
