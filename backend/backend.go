// Package backend defines the contract between the authkit client and the
// hosted service that owns credentials, profile rows and stored
// procedures.
//
// Implementations live in the rest (HTTPS) and memory (in-process)
// subpackages. Errors that carry a service error code should be
// github.com/samber/oops errors with that code set, so the client can pass
// the code through to callers.
package backend

import (
	"context"
	"time"

	"github.com/MrEthical07/authkit/session"
)

// AuthProvider is the managed-auth half of the service.
type AuthProvider interface {
	Authenticate(ctx context.Context, email, password string) (session.Identity, error)
	CreateIdentity(ctx context.Context, email, password string, meta map[string]string) (session.Identity, error)
	SignOut(ctx context.Context) error
	ResetPasswordEmail(ctx context.Context, email, redirectURL string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	// CurrentIdentity returns session.ErrNoSession when nobody is signed in.
	CurrentIdentity(ctx context.Context) (session.Identity, error)
}

// ProfileStore is the users table.
type ProfileStore interface {
	// FetchProfile returns session.ErrProfileNotFound for a missing row.
	FetchProfile(ctx context.Context, id string) (session.UserProfile, error)
	// UpdateProfile writes only the non-nil allow-listed fields and stamps
	// updated_at on the server.
	UpdateProfile(ctx context.Context, id string, fields ProfileFields) (session.UserProfile, error)
	DeactivateProfile(ctx context.Context, id string) error
	RecordLastLogin(ctx context.Context, id string, at time.Time) error
}

// Procedures are the remote stored procedures.
type Procedures interface {
	CreateUserAccount(ctx context.Context, params CreateAccountParams) (ProcedureResult, error)
	ValidateUsername(ctx context.Context, username string) (UsernameCheck, error)
	LogUserAction(ctx context.Context, entry ActionLog) error
}

// Backend is the full service contract.
type Backend interface {
	AuthProvider
	ProfileStore
	Procedures
}

// ProfileFields is the allow-list of user-editable columns. Nil means
// unchanged.
type ProfileFields struct {
	Name        *string `json:"name,omitempty"`
	Username    *string `json:"username,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Empty reports whether no field is set.
func (f ProfileFields) Empty() bool {
	return f.Name == nil && f.Username == nil && f.PhoneNumber == nil && f.Avatar == nil
}

// CreateAccountParams are the arguments of create_user_account.
type CreateAccountParams struct {
	UserID      string       `json:"p_user_id"`
	Email       string       `json:"p_email"`
	Name        string       `json:"p_name"`
	Username    string       `json:"p_username"`
	PhoneNumber string       `json:"p_phone_number,omitempty"`
	Avatar      string       `json:"p_avatar,omitempty"`
	Role        session.Role `json:"p_role"`
}

// ProcedureResult is the JSON verdict a procedure returns. Error holds the
// service code when Success is false.
type ProcedureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// UsernameCheck is the verdict of validate_username.
type UsernameCheck struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ActionLog is one row handed to log_user_action.
type ActionLog struct {
	UserID    string            `json:"p_user_id,omitempty"`
	Action    string            `json:"p_action"`
	Target    string            `json:"p_target,omitempty"`
	ExtraData map[string]string `json:"p_extra_data,omitempty"`
}
