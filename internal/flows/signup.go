package flows

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// SignupRequest is the raw signup form.
type SignupRequest struct {
	Email       string
	Password    string
	Name        string
	Username    string
	PhoneNumber string
}

// AccountParams is the input of the atomic create_user_account procedure.
type AccountParams struct {
	UserID      string
	Email       string
	Name        string
	Username    string
	PhoneNumber string
	Avatar      string
	Role        session.Role
}

// AccountOutcome is the procedure's own verdict.
type AccountOutcome struct {
	Success bool
	Code    string
	Message string
}

// SignupMetrics carries metric IDs needed by the signup flow.
type SignupMetrics struct {
	SignupSuccess     int
	SignupFailure     int
	SignupRateLimited int
	SignupRollback    int
	RollbackFailed    int
	ValidationReject  int
}

// SignupEvents carries audit event names used by the signup flow.
type SignupEvents struct {
	SignupSuccess  string
	SignupFailure  string
	SignupRollback string
	RateLimited    string
}

// SignupDeps captures signup dependencies.
type SignupDeps struct {
	Now              func() time.Time
	DefaultRole      session.Role
	RollbackAttempts int
	RollbackBackoff  time.Duration

	CheckRate       func(ctx context.Context, action string) error
	PasswordPolicy  validate.PasswordPolicy
	UsernameChecker validate.UsernameChecker

	CreateIdentity    func(ctx context.Context, email, password string, meta map[string]string) (session.Identity, error)
	PickAvatar        func() string
	CreateAccount     func(ctx context.Context, params AccountParams) (AccountOutcome, error)
	DeactivateProfile func(ctx context.Context, id string) error

	Effects Effects
	Metrics SignupMetrics
	Events  SignupEvents
	Errors  Errors
}

func normalizeSignupDeps(deps *SignupDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultRole == "" {
		deps.DefaultRole = session.RoleMember
	}
	if deps.RollbackAttempts <= 0 {
		deps.RollbackAttempts = 1
	}
	if deps.RollbackBackoff <= 0 {
		deps.RollbackBackoff = 200 * time.Millisecond
	}
	if deps.CheckRate == nil {
		deps.CheckRate = noRate
	}
	if deps.PickAvatar == nil {
		deps.PickAvatar = func() string { return "" }
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunSignup validates the form, creates the auth identity, then the profile
// row through the atomic procedure. When the procedure fails after the
// identity exists, the new profile is soft-rolled-back (marked inactive)
// and the identity is left for backend cleanup. The caller is not signed
// in and the new profile is not cached.
func RunSignup(ctx context.Context, req SignupRequest, deps SignupDeps) (*session.UserProfile, error) {
	normalizeSignupDeps(&deps)
	fx := deps.Effects

	if deps.CreateIdentity == nil || deps.CreateAccount == nil {
		return nil, deps.Errors.NotReady
	}

	target := strings.ToLower(strings.TrimSpace(req.Email))
	if err := deps.CheckRate(ctx, ActionSignup); err != nil {
		fx.MetricInc(deps.Metrics.SignupRateLimited)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.RateLimited, Target: target, Err: err, Metadata: func() map[string]string {
			return map[string]string{"action": ActionSignup}
		}})
		return nil, err
	}

	params, err := validateSignup(ctx, req, deps)
	if err != nil {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return nil, err
	}

	identity, err := deps.CreateIdentity(ctx, params.Email, req.Password, map[string]string{
		"name":     params.Name,
		"username": params.Username,
	})
	if err != nil {
		fx.MetricInc(deps.Metrics.SignupFailure)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.SignupFailure, Target: params.Email, Err: err})
		return nil, err
	}

	params.UserID = identity.ID
	params.Avatar = deps.PickAvatar()

	outcome, err := deps.CreateAccount(ctx, params)
	switch {
	case err != nil:
		err = storeError(deps.Errors.Database, err)
	case !outcome.Success:
		err = deps.Errors.Database
		if outcome.Code != "" {
			err = &ProcedureError{Procedure: "create_user_account", Code: outcome.Code, Message: outcome.Message, Err: deps.Errors.Database}
		}
	}
	if err != nil {
		fx.MetricInc(deps.Metrics.SignupFailure)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.SignupFailure, UserID: identity.ID, Target: params.Email, Err: err})
		rollbackSignup(ctx, identity.ID, deps)
		return nil, err
	}

	now := deps.Now().UTC()
	profile := session.UserProfile{
		ID:          identity.ID,
		Email:       params.Email,
		Name:        params.Name,
		Username:    params.Username,
		Role:        params.Role,
		IsActive:    true,
		Avatar:      params.Avatar,
		PhoneNumber: params.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	fx.MetricInc(deps.Metrics.SignupSuccess)
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.SignupSuccess, UserID: profile.ID, Target: profile.Email, Success: true})

	return &profile, nil
}

func validateSignup(ctx context.Context, req SignupRequest, deps SignupDeps) (AccountParams, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Username) == "" {
		return AccountParams{}, deps.Errors.MissingFields
	}

	if res := validate.Password(req.Password, deps.PasswordPolicy); !res.Valid {
		return AccountParams{}, invalid(deps.Errors.WeakPassword, "password", res.Reason)
	}
	email := validate.Email(req.Email)
	if !email.Valid {
		return AccountParams{}, invalid(deps.Errors.InvalidEmail, "email", email.Reason)
	}
	username := validate.Username(ctx, req.Username, deps.UsernameChecker)
	if !username.Valid {
		return AccountParams{}, invalid(deps.Errors.UsernameInvalid, "username", username.Reason)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username.Value
	}

	return AccountParams{
		Email:       email.Value,
		Name:        name,
		Username:    username.Value,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Role:        deps.DefaultRole,
	}, nil
}

// rollbackSignup marks the half-created profile inactive. Failure is logged
// and never changes the signup result.
func rollbackSignup(ctx context.Context, userID string, deps SignupDeps) {
	fx := deps.Effects
	if deps.DeactivateProfile == nil {
		fx.Warn("signup rollback skipped: no deactivate hook", "user_id", userID)
		return
	}

	fx.MetricInc(deps.Metrics.SignupRollback)
	ctx = context.WithoutCancel(ctx)
	backoff := retry.WithMaxRetries(uint64(deps.RollbackAttempts-1), retry.NewConstant(deps.RollbackBackoff))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := deps.DeactivateProfile(ctx, userID); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		fx.MetricInc(deps.Metrics.RollbackFailed)
		fx.Warn("signup rollback failed", "user_id", userID, "attempts", attempts, "error", err)
	}

	fx.EmitAudit(ctx, AuditRecord{
		Event:   deps.Events.SignupRollback,
		UserID:  userID,
		Success: err == nil,
		Err:     err,
		Metadata: func() map[string]string {
			return map[string]string{"attempts": strconv.Itoa(attempts)}
		},
	})
}
