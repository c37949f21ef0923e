package flows

import (
	"context"

	"github.com/MrEthical07/authkit/session"
)

// Service is the centralized flow runner built once by the Client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Authenticate != nil
}

func (s Service) Login(ctx context.Context, email, password string) (*session.UserProfile, error) {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Signup(ctx context.Context, req SignupRequest) (*session.UserProfile, error) {
	return RunSignup(ctx, req, s.deps.Signup)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) error {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) UpdatePassword(ctx context.Context, password string) error {
	return RunUpdatePassword(ctx, password, s.deps.PasswordUpdate)
}

func (s Service) CurrentUser(ctx context.Context, forceRefresh bool) (*session.UserProfile, error) {
	return RunCurrentUser(ctx, forceRefresh, s.deps.CurrentUser)
}

func (s Service) UpdateProfile(ctx context.Context, changes ProfileChanges) (*session.UserProfile, error) {
	return RunUpdateProfile(ctx, changes, s.deps.ProfileUpdate)
}
