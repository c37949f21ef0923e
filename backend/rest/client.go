// Package rest implements the backend contract against a Supabase-shaped
// HTTPS API: GoTrue-style auth under /auth/v1 and PostgREST tables and
// procedures under /rest/v1.
//
// Service errors are returned as oops errors coded with the service's
// error code, or "http_<status>" when the body carries none. Transport
// failures are coded "network_error".
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authkit/backend"
	"github.com/MrEthical07/authkit/session"
	"github.com/samber/oops"
)

// CodeNetwork marks transport failures.
const CodeNetwork = "network_error"

const (
	defaultTimeout    = 15 * time.Second
	defaultUsersTable = "users"
	maxErrorBody      = 64 << 10
)

// Config configures a [Client].
type Config struct {
	// URL is the project root, e.g. https://abc.supabase.co.
	URL string
	// APIKey is the public anon key sent as the apikey header.
	APIKey     string
	UsersTable string
	HTTPClient *http.Client
	Timeout    time.Duration
	Now        func() time.Time
}

// Client talks to the hosted service and holds the current auth session.
type Client struct {
	base   *url.URL
	apiKey string
	table  string
	http   *http.Client
	now    func() time.Time

	mu      sync.RWMutex
	session *authSession
}

type authSession struct {
	identity session.Identity
}

var _ backend.Backend = (*Client)(nil)

// New validates cfg and returns a signed-out client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rest: URL required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("rest: invalid URL %q", cfg.URL)
	}
	if cfg.APIKey == "" {
		return nil, errors.New("rest: APIKey required")
	}
	if cfg.UsersTable == "" {
		cfg.UsersTable = defaultUsersTable
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Client{
		base:   base,
		apiKey: cfg.APIKey,
		table:  cfg.UsersTable,
		http:   cfg.HTTPClient,
		now:    cfg.Now,
	}, nil
}

// Session returns the identity currently held, if any.
func (c *Client) Session() (session.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return session.Identity{}, false
	}
	return c.session.identity, true
}

func (c *Client) setSession(id session.Identity) {
	c.mu.Lock()
	c.session = &authSession{identity: id}
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.identity.AccessToken
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// bearer overrides the session token; empty falls back to the API key.
	bearer string
	prefer string
}

// do sends req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return oops.Code("encode_error").With("path", req.path).Wrapf(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return oops.Code(CodeNetwork).With("path", req.path).Wrapf(err, "build request")
	}
	httpReq.Header.Set("apikey", c.apiKey)
	bearer := req.bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return oops.Code(CodeNetwork).
			With("method", req.method).
			With("path", req.path).
			Wrapf(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, req)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Code("decode_error").
			With("path", req.path).
			With("status", resp.StatusCode).
			Wrapf(err, "decode response")
	}
	return nil
}

type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Error            string `json:"error"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) code(status int) string {
	if b.ErrorCode != "" {
		return b.ErrorCode
	}
	if s, ok := b.Code.(string); ok && s != "" {
		return s
	}
	if b.Error != "" {
		return b.Error
	}
	return "http_" + strconv.Itoa(status)
}

func (b errorBody) message() string {
	for _, m := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

func decodeError(resp *http.Response, req request) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	_ = json.Unmarshal(raw, &eb)

	msg := eb.message()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return oops.Code(eb.code(resp.StatusCode)).
		With("status", resp.StatusCode).
		With("method", req.method).
		With("path", req.path).
		Errorf("%s", msg)
}

// statusOf returns the HTTP status recorded on an oops error, or 0.
func statusOf(err error) int {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0
	}
	status, _ := oopsErr.Context()["status"].(int)
	return status
}
