package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Claims mirrors the claim set of a hosted-auth access token.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseUnverified decodes the claims without checking the signature. The
// result must only drive client-side decisions like refresh timing.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of token.
func ExpiresAt(token string) (time.Time, error) {
	claims, err := ParseUnverified(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token is expired at now, treating anything within
// leeway of its expiry as already expired. Unparseable tokens are expired.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	return !now.Add(leeway).Before(exp)
}
