package flows

import (
	"context"
	"errors"
)

// Action classes used as rate-gate keys.
const (
	ActionLogin          = "login"
	ActionSignup         = "signup"
	ActionPasswordReset  = "password_reset"
	ActionPasswordUpdate = "password_update"
	ActionProfileUpdate  = "profile_update"
)

// Deps groups flow dependency sets. The Client builds this once and
// delegates each method to the matching flow.
type Deps struct {
	Login          LoginDeps
	Signup         SignupDeps
	Logout         LogoutDeps
	PasswordReset  PasswordResetDeps
	PasswordUpdate PasswordUpdateDeps
	CurrentUser    CurrentUserDeps
	ProfileUpdate  ProfileUpdateDeps
}

// AuditRecord is the flow-local shape of one audit event.
type AuditRecord struct {
	Event    string
	UserID   string
	Target   string
	Success  bool
	Err      error
	Metadata func() map[string]string
}

// Effects are the side channels every flow reports through. Nil fields are
// replaced with no-ops, except Detach which then runs the task inline.
type Effects struct {
	MetricInc func(int)
	EmitAudit func(context.Context, AuditRecord)
	Detach    func(ctx context.Context, name string, fn func(context.Context) error)
	Warn      func(msg string, args ...any)
}

func (e *Effects) normalize() {
	if e.MetricInc == nil {
		e.MetricInc = func(int) {}
	}
	if e.EmitAudit == nil {
		e.EmitAudit = func(context.Context, AuditRecord) {}
	}
	if e.Warn == nil {
		e.Warn = func(string, ...any) {}
	}
	if e.Detach == nil {
		warn := e.Warn
		e.Detach = func(ctx context.Context, name string, fn func(context.Context) error) {
			if err := fn(ctx); err != nil {
				warn("background task failed", "task", name, "error", err)
			}
		}
	}
}

// Errors carries host-level sentinel errors shared by every flow.
type Errors struct {
	NotReady         error
	MissingFields    error
	InvalidEmail     error
	WeakPassword     error
	UsernameInvalid  error
	UserNotFound     error
	UserDisabled     error
	Database         error
	NotAuthenticated error
}

var (
	errNotReady         = errors.New("flow not ready")
	errMissingFields    = errors.New("missing required fields")
	errInvalidEmail     = errors.New("invalid email")
	errWeakPassword     = errors.New("weak password")
	errUsernameInvalid  = errors.New("invalid username")
	errUserNotFound     = errors.New("user not found")
	errUserDisabled     = errors.New("user disabled")
	errDatabase         = errors.New("database error")
	errNotAuthenticated = errors.New("not authenticated")
)

func (e *Errors) normalize() {
	fill := func(dst *error, def error) {
		if *dst == nil {
			*dst = def
		}
	}
	fill(&e.NotReady, errNotReady)
	fill(&e.MissingFields, errMissingFields)
	fill(&e.InvalidEmail, errInvalidEmail)
	fill(&e.WeakPassword, errWeakPassword)
	fill(&e.UsernameInvalid, errUsernameInvalid)
	fill(&e.UserNotFound, errUserNotFound)
	fill(&e.UserDisabled, errUserDisabled)
	fill(&e.Database, errDatabase)
	fill(&e.NotAuthenticated, errNotAuthenticated)
}

func noRate(context.Context, string) error { return nil }
