package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MrEthical07/authkit/session"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`

	// Present when signup returns the bare user instead of a session.
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (t tokenResponse) identity(now time.Time) session.Identity {
	id := session.Identity{
		ID:           t.ID,
		Email:        t.Email,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
	if t.User != nil {
		id.ID = t.User.ID
		id.Email = t.User.Email
	}
	switch {
	case t.ExpiresAt > 0:
		id.ExpiresAt = time.Unix(t.ExpiresAt, 0).UTC()
	case t.ExpiresIn > 0:
		id.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	}
	return id
}

// Authenticate exchanges email and password for a session and keeps it.
func (c *Client) Authenticate(ctx context.Context, email, password string) (session.Identity, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &out)
	if err != nil {
		return session.Identity{}, err
	}

	id := out.identity(c.now())
	if id.ID == "" || id.AccessToken == "" {
		return session.Identity{}, fmt.Errorf("rest: token response without user or access token")
	}
	c.setSession(id)
	return id, nil
}

// CreateIdentity registers a new auth identity. Any session the service
// returns is discarded: signup never signs the caller in.
func (c *Client) CreateIdentity(ctx context.Context, email, password string, meta map[string]string) (session.Identity, error) {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    email,
			"password": password,
			"data":     meta,
		},
	}, &out)
	if err != nil {
		return session.Identity{}, err
	}

	id := out.identity(c.now())
	if id.ID == "" {
		return session.Identity{}, fmt.Errorf("rest: signup response without user id")
	}
	return session.Identity{ID: id.ID, Email: id.Email}, nil
}

// SignOut revokes the current session. The local session is dropped even
// when the remote call fails.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.accessToken()
	c.clearSession()
	if token == "" {
		return nil
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: token,
	}, nil)
}

// ResetPasswordEmail asks the service to send a recovery email.
func (c *Client) ResetPasswordEmail(ctx context.Context, email, redirectURL string) error {
	var query url.Values
	if redirectURL != "" {
		query = url.Values{"redirect_to": {redirectURL}}
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		query:  query,
		body:   map[string]string{"email": email},
	}, nil)
}

// UpdatePassword sets a new password for the signed-in identity.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	token := c.accessToken()
	if token == "" {
		return session.ErrNoSession
	}
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		body:   map[string]string{"password": newPassword},
		bearer: token,
	}, nil)
}

// CurrentIdentity asks the service who the held token belongs to. A
// rejected token drops the local session and reports session.ErrNoSession.
func (c *Client) CurrentIdentity(ctx context.Context) (session.Identity, error) {
	held, ok := c.Session()
	if !ok {
		return session.Identity{}, session.ErrNoSession
	}

	var out userResponse
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: held.AccessToken,
	}, &out)
	if err != nil {
		if s := statusOf(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
			c.clearSession()
			return session.Identity{}, fmt.Errorf("%w: %w", session.ErrNoSession, err)
		}
		return session.Identity{}, err
	}

	held.ID = out.ID
	if out.Email != "" {
		held.Email = out.Email
	}
	return held, nil
}
