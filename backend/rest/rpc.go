package rest

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authkit/backend"
)

// Procedure names on the service.
const (
	ProcCreateUserAccount = "create_user_account"
	ProcValidateUsername  = "validate_username"
	ProcLogUserAction     = "log_user_action"
)

func (c *Client) rpc(ctx context.Context, name string, args any, out any) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + name,
		body:   args,
		bearer: c.bearer(),
	}, out)
}

// CreateUserAccount runs the atomic profile-creation procedure.
func (c *Client) CreateUserAccount(ctx context.Context, params backend.CreateAccountParams) (backend.ProcedureResult, error) {
	var out backend.ProcedureResult
	if err := c.rpc(ctx, ProcCreateUserAccount, params, &out); err != nil {
		return backend.ProcedureResult{}, err
	}
	return out, nil
}

// ValidateUsername runs the authoritative username check.
func (c *Client) ValidateUsername(ctx context.Context, username string) (backend.UsernameCheck, error) {
	var out backend.UsernameCheck
	err := c.rpc(ctx, ProcValidateUsername, map[string]string{"p_username": username}, &out)
	if err != nil {
		return backend.UsernameCheck{}, err
	}
	return out, nil
}

// LogUserAction records one audit row. The procedure's return value is
// ignored.
func (c *Client) LogUserAction(ctx context.Context, entry backend.ActionLog) error {
	return c.rpc(ctx, ProcLogUserAction, entry, nil)
}
