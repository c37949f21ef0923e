package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/backend"
	"github.com/MrEthical07/authkit/jwt"
	"github.com/MrEthical07/authkit/session"
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Mode selects how much a guard checks.
type Mode int

const (
	// ModeTokenOnly accepts any valid token without a backend call.
	ModeTokenOnly Mode = iota
	// ModeStrict also loads the profile row and rejects inactive accounts.
	ModeStrict
)

type claimsContextKey struct{}
type profileContextKey struct{}

// ClaimsFromContext returns the verified claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return c, ok
}

// ProfileFromContext returns the profile loaded by a strict guard.
func ProfileFromContext(ctx context.Context) (session.UserProfile, bool) {
	p, ok := ctx.Value(profileContextKey{}).(session.UserProfile)
	return p, ok
}

// Guard verifies the bearer token of every request. In ModeStrict the
// profile is fetched from profiles, which must then be non-nil.
func Guard(verifier TokenVerifier, profiles backend.ProfileStore, mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil || (mode == ModeStrict && profiles == nil) {
				reject(w, r, http.StatusUnauthorized, authkit.CodeNotAuthenticated)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, http.StatusUnauthorized, authkit.CodeNotAuthenticated)
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil || claims.Subject == "" {
				reject(w, r, http.StatusUnauthorized, authkit.CodeNotAuthenticated)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)

			if mode == ModeStrict {
				profile, err := profiles.FetchProfile(ctx, claims.Subject)
				switch {
				case errors.Is(err, session.ErrProfileNotFound):
					reject(w, r, http.StatusUnauthorized, authkit.CodeUserNotFound)
					return
				case err != nil:
					reject(w, r, http.StatusServiceUnavailable, authkit.CodeDatabase)
					return
				case !profile.IsActive:
					reject(w, r, http.StatusForbidden, authkit.CodeUserDisabled)
					return
				}
				ctx = context.WithValue(ctx, profileContextKey{}, profile)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTokenOnly is Guard in ModeTokenOnly.
func RequireTokenOnly(verifier TokenVerifier) func(http.Handler) http.Handler {
	return Guard(verifier, nil, ModeTokenOnly)
}

// RequireStrict is Guard in ModeStrict.
func RequireStrict(verifier TokenVerifier, profiles backend.ProfileStore) func(http.Handler) http.Handler {
	return Guard(verifier, profiles, ModeStrict)
}

// RequireRole admits requests whose profile has one of roles. It must run
// behind a strict guard.
func RequireRole(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := ProfileFromContext(r.Context())
			if !ok {
				reject(w, r, http.StatusUnauthorized, authkit.CodeNotAuthenticated)
				return
			}
			if !slices.Contains(roles, profile.Role) {
				reject(w, r, http.StatusForbidden, authkit.CodeForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	return token, token != ""
}

// reject writes a JSON error in the locale named by Accept-Language.
func reject(w http.ResponseWriter, r *http.Request, status int, code authkit.ErrorCode) {
	locale := authkit.LocaleEN
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Accept-Language")), "vi") {
		locale = authkit.LocaleVI
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error   authkit.ErrorCode `json:"error"`
		Message string            `json:"message"`
	}{code, authkit.Translate(code, locale)})
}
