package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/MrEthical07/authkit/backend"
	"github.com/MrEthical07/authkit/session"
)

func (c *Client) tablePath() string {
	return "/rest/v1/" + c.table
}

func byID(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// bearer prefers the user's token so row-level security applies.
func (c *Client) bearer() string {
	return c.accessToken()
}

// FetchProfile reads the users row for id.
func (c *Client) FetchProfile(ctx context.Context, id string) (session.UserProfile, error) {
	q := byID(id)
	q.Set("select", "*")
	q.Set("limit", "1")

	var rows []session.UserProfile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   c.tablePath(),
		query:  q,
		bearer: c.bearer(),
	}, &rows)
	if err != nil {
		return session.UserProfile{}, err
	}
	if len(rows) == 0 {
		return session.UserProfile{}, session.ErrProfileNotFound
	}
	return rows[0], nil
}

// UpdateProfile patches the allow-listed fields plus updated_at and returns
// the updated row.
func (c *Client) UpdateProfile(ctx context.Context, id string, fields backend.ProfileFields) (session.UserProfile, error) {
	body := map[string]any{
		"updated_at": c.now().UTC().Format(time.RFC3339Nano),
	}
	if fields.Name != nil {
		body["name"] = *fields.Name
	}
	if fields.Username != nil {
		body["username"] = *fields.Username
	}
	if fields.PhoneNumber != nil {
		body["phone_number"] = *fields.PhoneNumber
	}
	if fields.Avatar != nil {
		body["avatar"] = *fields.Avatar
	}

	var rows []session.UserProfile
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.tablePath(),
		query:  byID(id),
		body:   body,
		bearer: c.bearer(),
		prefer: "return=representation",
	}, &rows)
	if err != nil {
		return session.UserProfile{}, err
	}
	if len(rows) == 0 {
		return session.UserProfile{}, session.ErrProfileNotFound
	}
	return rows[0], nil
}

// DeactivateProfile sets is_active = false.
func (c *Client) DeactivateProfile(ctx context.Context, id string) error {
	return c.patch(ctx, id, map[string]any{
		"is_active":  false,
		"updated_at": c.now().UTC().Format(time.RFC3339Nano),
	})
}

// RecordLastLogin stamps last_login.
func (c *Client) RecordLastLogin(ctx context.Context, id string, at time.Time) error {
	return c.patch(ctx, id, map[string]any{
		"last_login": at.UTC().Format(time.RFC3339Nano),
	})
}

func (c *Client) patch(ctx context.Context, id string, body map[string]any) error {
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   c.tablePath(),
		query:  byID(id),
		body:   body,
		bearer: c.bearer(),
		prefer: "return=minimal",
	}, nil)
}
