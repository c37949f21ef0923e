package session

import (
	"errors"
	"time"
)

var (
	// ErrProfileNotFound is returned by profile stores when no row exists for an identity.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoSession is returned by auth providers when no identity is signed in.
	ErrNoSession = errors.New("no active session")
	// ErrSessionLost is returned by monitor probes once the session is gone for good.
	ErrSessionLost = errors.New("session lost")
)

// Role is the enumerated account role stored on the profile row.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// UserProfile is the application-level account row, distinct from the
// provider identity. The json tags follow the remote users table.
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	Avatar      string    `json:"avatar,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	LastLogin   time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p UserProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Identity is the auth provider's view of a signed-in account.
type Identity struct {
	ID           string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
