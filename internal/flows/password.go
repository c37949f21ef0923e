package flows

import (
	"context"
	"strings"

	"github.com/MrEthical07/authkit/validate"
)

// PasswordResetMetrics carries metric IDs needed by the reset-request flow.
type PasswordResetMetrics struct {
	PasswordResetRequest int
	RateLimited          int
	ValidationReject     int
}

// PasswordResetEvents carries audit event names used by the reset-request flow.
type PasswordResetEvents struct {
	PasswordResetRequest string
	RateLimited          string
}

// PasswordResetDeps captures reset-request dependencies.
type PasswordResetDeps struct {
	RedirectURL string

	CheckRate          func(ctx context.Context, action string) error
	ResetPasswordEmail func(ctx context.Context, email, redirectURL string) error

	Effects Effects
	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  Errors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.CheckRate == nil {
		deps.CheckRate = noRate
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunRequestPasswordReset asks the provider to send a reset email.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	fx := deps.Effects

	if deps.ResetPasswordEmail == nil {
		return deps.Errors.NotReady
	}
	if strings.TrimSpace(email) == "" {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return deps.Errors.MissingFields
	}

	if err := deps.CheckRate(ctx, ActionPasswordReset); err != nil {
		fx.MetricInc(deps.Metrics.RateLimited)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.RateLimited, Err: err, Metadata: func() map[string]string {
			return map[string]string{"action": ActionPasswordReset}
		}})
		return err
	}

	checked := validate.Email(email)
	if !checked.Valid {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return invalid(deps.Errors.InvalidEmail, "email", checked.Reason)
	}

	err := deps.ResetPasswordEmail(ctx, checked.Value, deps.RedirectURL)
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.PasswordResetRequest, Target: checked.Value, Success: err == nil, Err: err})
	if err != nil {
		return err
	}
	fx.MetricInc(deps.Metrics.PasswordResetRequest)
	return nil
}

// PasswordUpdateMetrics carries metric IDs needed by the password-update flow.
type PasswordUpdateMetrics struct {
	PasswordUpdate   int
	RateLimited      int
	ValidationReject int
}

// PasswordUpdateEvents carries audit event names used by the password-update flow.
type PasswordUpdateEvents struct {
	PasswordUpdate string
	RateLimited    string
}

// PasswordUpdateDeps captures password-update dependencies.
type PasswordUpdateDeps struct {
	CurrentUserID  func() string
	CheckRate      func(ctx context.Context, action string) error
	PasswordPolicy validate.PasswordPolicy
	UpdatePassword func(ctx context.Context, password string) error

	Effects Effects
	Metrics PasswordUpdateMetrics
	Events  PasswordUpdateEvents
	Errors  Errors
}

func normalizePasswordUpdateDeps(deps *PasswordUpdateDeps) {
	if deps.CurrentUserID == nil {
		deps.CurrentUserID = func() string { return "" }
	}
	if deps.CheckRate == nil {
		deps.CheckRate = noRate
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunUpdatePassword sets a new password for the signed-in identity. The
// identity cache holds no credentials, so it is left alone.
func RunUpdatePassword(ctx context.Context, password string, deps PasswordUpdateDeps) error {
	normalizePasswordUpdateDeps(&deps)
	fx := deps.Effects

	if deps.UpdatePassword == nil {
		return deps.Errors.NotReady
	}
	if password == "" {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return deps.Errors.MissingFields
	}

	userID := deps.CurrentUserID()
	if err := deps.CheckRate(ctx, ActionPasswordUpdate); err != nil {
		fx.MetricInc(deps.Metrics.RateLimited)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.RateLimited, UserID: userID, Err: err, Metadata: func() map[string]string {
			return map[string]string{"action": ActionPasswordUpdate}
		}})
		return err
	}

	if res := validate.Password(password, deps.PasswordPolicy); !res.Valid {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return invalid(deps.Errors.WeakPassword, "password", res.Reason)
	}

	err := deps.UpdatePassword(ctx, password)
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.PasswordUpdate, UserID: userID, Success: err == nil, Err: err})
	if err != nil {
		return err
	}
	fx.MetricInc(deps.Metrics.PasswordUpdate)
	return nil
}
