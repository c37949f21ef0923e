// Package memory is an in-process implementation of the backend contract.
//
// It keeps identities, profiles and the audit log in maps guarded by one
// mutex, issues HS256 access tokens and stores Argon2id credential hashes.
// Errors carry the same oops codes a hosted service would return, so flows
// behave the same against either backend. Intended for the CLI demo and
// integration tests.
package memory

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/MrEthical07/authkit/backend"
	"github.com/MrEthical07/authkit/internal/token"
	"github.com/MrEthical07/authkit/jwt"
	"github.com/MrEthical07/authkit/password"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// Service error codes returned by this backend.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserExists         = "user_already_exists"
	CodeWeakPassword       = "weak_password"
	CodeSamePassword       = "same_password"
	CodeUsernameTaken      = "username_taken"
	CodeUserNotFound       = "user_not_found"
	CodeLinkExpired        = "otp_expired"
)

// MinPasswordLength mirrors the hosted service's own floor.
const MinPasswordLength = 6

// Config configures a [Backend].
type Config struct {
	TokenTTL   time.Duration
	SigningKey []byte
	Issuer     string
	Hashing    password.Config
	// ResetTTL bounds how long a recovery link stays usable.
	ResetTTL time.Duration
	Now      func() time.Time
}

func defaultConfig() Config {
	return Config{
		TokenTTL: time.Hour,
		Issuer:   "authkit-memory",
		Hashing:  password.LightConfig(),
		ResetTTL: time.Hour,
		Now:      time.Now,
	}
}

// User seeds an account through [Backend.AddUser].
type User struct {
	Email    string
	Password string
	Name     string
	Username string
	Role     session.Role
	Inactive bool
}

type identityRecord struct {
	id    string
	email string
	hash  string
	meta  map[string]string
}

// CreateAccountHook intercepts create_user_account. Returning handled=false
// lets the default implementation run.
type CreateAccountHook func(ctx context.Context, params backend.CreateAccountParams) (res backend.ProcedureResult, handled bool, err error)

// Backend is a concurrency-safe in-memory backend.
type Backend struct {
	now      func() time.Time
	resetTTL time.Duration
	tokens   *jwt.Manager
	hasher   *password.Hasher

	mu         sync.Mutex
	byEmail    map[string]*identityRecord
	byID       map[string]*identityRecord
	profiles   map[string]session.UserProfile
	current    *session.Identity
	revoked    map[string]struct{}
	actions    []backend.ActionLog
	resets     []string
	links      map[token.ID]resetGrant
	lastLink   map[string]string
	createHook CreateAccountHook
}

// resetGrant is a pending recovery link. Only the secret's hash is kept.
type resetGrant struct {
	userID  string
	hash    [32]byte
	expires time.Time
}

var _ backend.Backend = (*Backend)(nil)

// New returns an empty backend. Zero fields in cfg take defaults; a random
// signing key is generated when none is given.
func New(cfg Config) (*Backend, error) {
	def := defaultConfig()
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}
	if cfg.Hashing == (password.Config{}) {
		cfg.Hashing = def.Hashing
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = def.ResetTTL
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if len(cfg.SigningKey) == 0 {
		cfg.SigningKey = make([]byte, 32)
		if _, err := rand.Read(cfg.SigningKey); err != nil {
			return nil, fmt.Errorf("memory: signing key: %w", err)
		}
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.SigningKey,
		Issuer:        cfg.Issuer,
		Now:           cfg.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: token manager: %w", err)
	}
	hasher, err := password.NewHasher(cfg.Hashing)
	if err != nil {
		return nil, fmt.Errorf("memory: hasher: %w", err)
	}

	return &Backend{
		now:      cfg.Now,
		resetTTL: cfg.ResetTTL,
		tokens:   tokens,
		hasher:   hasher,
		links:    make(map[token.ID]resetGrant),
		lastLink: make(map[string]string),
		byEmail:  make(map[string]*identityRecord),
		byID:     make(map[string]*identityRecord),
		profiles: make(map[string]session.UserProfile),
		revoked:  make(map[string]struct{}),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// -------- AUTH --------

// Authenticate verifies the credentials and holds a fresh session.
func (b *Backend) Authenticate(_ context.Context, email, pw string) (session.Identity, error) {
	b.mu.Lock()
	rec := b.byEmail[normalizeEmail(email)]
	b.mu.Unlock()

	// Hash outside the lock; records are never mutated in place.
	if rec == nil {
		return session.Identity{}, invalidCredentials()
	}
	ok, err := b.hasher.Verify(pw, rec.hash)
	if err != nil || !ok {
		return session.Identity{}, invalidCredentials()
	}

	sessionID := uuid.NewString()
	token, expires, err := b.tokens.Issue(rec.id, rec.email, sessionID)
	if err != nil {
		return session.Identity{}, oops.Code("token_error").Wrapf(err, "issue token")
	}
	id := session.Identity{
		ID:           rec.id,
		Email:        rec.email,
		AccessToken:  token,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    expires,
	}

	b.mu.Lock()
	b.current = &id
	b.mu.Unlock()
	return id, nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).With("status", 400).Errorf("Invalid login credentials")
}

// CreateIdentity registers a new identity without signing it in.
func (b *Backend) CreateIdentity(_ context.Context, email, pw string, meta map[string]string) (session.Identity, error) {
	if len(pw) < MinPasswordLength {
		return session.Identity{}, oops.Code(CodeWeakPassword).With("status", 422).
			Errorf("Password should be at least %d characters.", MinPasswordLength)
	}
	hash, err := b.hasher.Hash(pw)
	if err != nil {
		return session.Identity{}, oops.Code(CodeWeakPassword).With("status", 422).Wrapf(err, "hash password")
	}

	key := normalizeEmail(email)
	rec := &identityRecord{
		id:    uuid.NewString(),
		email: key,
		hash:  hash,
		meta:  maps.Clone(meta),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byEmail[key]; ok {
		return session.Identity{}, oops.Code(CodeUserExists).With("status", 422).Errorf("User already registered")
	}
	b.byEmail[key] = rec
	b.byID[rec.id] = rec
	return session.Identity{ID: rec.id, Email: rec.email}, nil
}

// SignOut revokes and drops the held session. Signed-out is not an error.
func (b *Backend) SignOut(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		if claims, err := jwt.ParseUnverified(b.current.AccessToken); err == nil && claims.SessionID != "" {
			b.revoked[claims.SessionID] = struct{}{}
		}
	}
	b.current = nil
	return nil
}

// ResetPasswordEmail records the request and, for a known address, issues
// a recovery link readable through ResetLink. Unknown addresses are
// accepted silently so callers cannot probe for accounts.
func (b *Backend) ResetPasswordEmail(_ context.Context, email, _ string) error {
	email = normalizeEmail(email)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets = append(b.resets, email)

	rec := b.byEmail[email]
	if rec == nil {
		return nil
	}
	link, id, hash, err := token.New()
	if err != nil {
		return oops.Code("unexpected_failure").With("status", 500).Wrapf(err, "issue recovery link")
	}
	if prev, ok := b.lastLink[email]; ok {
		if prevID, _, err := token.Decode(prev); err == nil {
			delete(b.links, prevID)
		}
	}
	b.links[id] = resetGrant{userID: rec.id, hash: hash, expires: b.now().Add(b.resetTTL)}
	b.lastLink[email] = link
	return nil
}

// ConfirmReset redeems a recovery link and sets a new password. Links are
// single-use and a newer request for the same address replaces the older
// link.
func (b *Backend) ConfirmReset(_ context.Context, link, newPassword string) error {
	expired := func() error {
		return oops.Code(CodeLinkExpired).With("status", 403).
			Errorf("Email link is invalid or has expired")
	}

	id, secret, err := token.Decode(link)
	if err != nil {
		return expired()
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code(CodeWeakPassword).With("status", 422).
			Errorf("Password should be at least %d characters.", MinPasswordLength)
	}

	b.mu.Lock()
	grant, ok := b.links[id]
	if ok {
		delete(b.links, id)
	}
	rec := b.byID[grant.userID]
	b.mu.Unlock()

	if !ok || grant.hash != secret.Hash() || !b.now().Before(grant.expires) || rec == nil {
		return expired()
	}

	hash, err := b.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code(CodeWeakPassword).With("status", 422).Wrapf(err, "hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.byID[rec.id]
	if !ok {
		return expired()
	}
	next := *cur
	next.hash = hash
	b.byID[next.id] = &next
	b.byEmail[next.email] = &next
	delete(b.lastLink, next.email)
	return nil
}

// UpdatePassword replaces the signed-in identity's credential.
func (b *Backend) UpdatePassword(_ context.Context, newPassword string) error {
	b.mu.Lock()
	cur := b.current
	var rec *identityRecord
	if cur != nil {
		rec = b.byID[cur.ID]
	}
	b.mu.Unlock()

	if cur == nil || rec == nil {
		return session.ErrNoSession
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code(CodeWeakPassword).With("status", 422).
			Errorf("Password should be at least %d characters.", MinPasswordLength)
	}
	if same, _ := b.hasher.Verify(newPassword, rec.hash); same {
		return oops.Code(CodeSamePassword).With("status", 422).
			Errorf("New password should be different from the old password.")
	}
	hash, err := b.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code(CodeWeakPassword).With("status", 422).Wrapf(err, "hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byID[rec.id]; !ok {
		return session.ErrNoSession
	}
	next := *rec
	next.hash = hash
	b.byID[rec.id] = &next
	b.byEmail[rec.email] = &next
	return nil
}

// CurrentIdentity verifies the held token. An expired, revoked or orphaned
// token drops the session and reports session.ErrNoSession.
func (b *Backend) CurrentIdentity(_ context.Context) (session.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return session.Identity{}, session.ErrNoSession
	}
	cur := *b.current

	claims, err := b.tokens.Verify(cur.AccessToken)
	if err != nil {
		b.current = nil
		return session.Identity{}, fmt.Errorf("%w: %w", session.ErrNoSession, err)
	}
	if _, gone := b.revoked[claims.SessionID]; gone {
		b.current = nil
		return session.Identity{}, fmt.Errorf("%w: session revoked", session.ErrNoSession)
	}
	if _, ok := b.byID[claims.Subject]; !ok {
		b.current = nil
		return session.Identity{}, fmt.Errorf("%w: identity deleted", session.ErrNoSession)
	}
	return cur, nil
}

// -------- PROFILES --------

// FetchProfile returns the profile row for id.
func (b *Backend) FetchProfile(_ context.Context, id string) (session.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return session.UserProfile{}, session.ErrProfileNotFound
	}
	return p, nil
}

// UpdateProfile applies the set fields and stamps updated_at.
func (b *Backend) UpdateProfile(_ context.Context, id string, fields backend.ProfileFields) (session.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.profiles[id]
	if !ok {
		return session.UserProfile{}, session.ErrProfileNotFound
	}
	if fields.Username != nil && *fields.Username != p.Username && b.usernameTakenLocked(*fields.Username) {
		return session.UserProfile{}, oops.Code(CodeUsernameTaken).With("status", 409).
			Errorf("username %q is taken", *fields.Username)
	}
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Username != nil {
		p.Username = *fields.Username
	}
	if fields.PhoneNumber != nil {
		p.PhoneNumber = *fields.PhoneNumber
	}
	if fields.Avatar != nil {
		p.Avatar = *fields.Avatar
	}
	p.UpdatedAt = b.now().UTC()
	b.profiles[id] = p
	return p, nil
}

// DeactivateProfile marks the row inactive. Like a filtered update that
// matches nothing, a missing row is not an error.
func (b *Backend) DeactivateProfile(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.profiles[id]; ok {
		p.IsActive = false
		p.UpdatedAt = b.now().UTC()
		b.profiles[id] = p
	}
	return nil
}

// RecordLastLogin stamps last_login.
func (b *Backend) RecordLastLogin(_ context.Context, id string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.profiles[id]; ok {
		p.LastLogin = at.UTC()
		b.profiles[id] = p
	}
	return nil
}

func (b *Backend) usernameTakenLocked(username string) bool {
	for _, p := range b.profiles {
		if strings.EqualFold(p.Username, username) {
			return true
		}
	}
	return false
}

// -------- PROCEDURES --------

// CreateUserAccount inserts the profile row for an existing identity.
func (b *Backend) CreateUserAccount(ctx context.Context, params backend.CreateAccountParams) (backend.ProcedureResult, error) {
	b.mu.Lock()
	hook := b.createHook
	b.mu.Unlock()
	if hook != nil {
		if res, handled, err := hook(ctx, params); handled {
			return res, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byID[params.UserID]; !ok {
		return backend.ProcedureResult{Error: CodeUserNotFound, Message: "identity does not exist"}, nil
	}
	if _, ok := b.profiles[params.UserID]; ok {
		return backend.ProcedureResult{Error: CodeUserExists, Message: "profile already exists"}, nil
	}
	if b.usernameTakenLocked(params.Username) {
		return backend.ProcedureResult{Error: CodeUsernameTaken, Message: "username is taken"}, nil
	}

	role := params.Role
	if role == "" {
		role = session.RoleMember
	}
	now := b.now().UTC()
	b.profiles[params.UserID] = session.UserProfile{
		ID:          params.UserID,
		Email:       normalizeEmail(params.Email),
		Name:        params.Name,
		Username:    params.Username,
		Role:        role,
		IsActive:    true,
		Avatar:      params.Avatar,
		PhoneNumber: params.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return backend.ProcedureResult{Success: true}, nil
}

// ValidateUsername reports whether username is free.
func (b *Backend) ValidateUsername(_ context.Context, username string) (backend.UsernameCheck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.usernameTakenLocked(username) {
		return backend.UsernameCheck{Error: validate.ReasonUsernameTaken}, nil
	}
	return backend.UsernameCheck{Valid: true}, nil
}

// LogUserAction appends entry to the audit log.
func (b *Backend) LogUserAction(_ context.Context, entry backend.ActionLog) error {
	entry.ExtraData = maps.Clone(entry.ExtraData)
	b.mu.Lock()
	b.actions = append(b.actions, entry)
	b.mu.Unlock()
	return nil
}

// -------- ADMIN --------

// AddUser seeds an identity with its profile and returns the new id.
func (b *Backend) AddUser(ctx context.Context, u User) (string, error) {
	if u.Username == "" {
		return "", errors.New("memory: username required")
	}
	id, err := b.CreateIdentity(ctx, u.Email, u.Password, map[string]string{"username": u.Username})
	if err != nil {
		return "", err
	}
	name := u.Name
	if name == "" {
		name = u.Username
	}
	res, err := b.CreateUserAccount(ctx, backend.CreateAccountParams{
		UserID:   id.ID,
		Email:    id.Email,
		Name:     name,
		Username: u.Username,
		Role:     u.Role,
	})
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("memory: create account: %s", res.Error)
	}
	if u.Inactive {
		if err := b.DeactivateProfile(ctx, id.ID); err != nil {
			return "", err
		}
	}
	return id.ID, nil
}

// SetActive flips the profile's is_active flag.
func (b *Backend) SetActive(id string, active bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return session.ErrProfileNotFound
	}
	p.IsActive = active
	b.profiles[id] = p
	return nil
}

// DeleteIdentity removes the identity and its profile, as an administrator
// deleting the account would.
func (b *Backend) DeleteIdentity(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, ok := b.byID[id]; ok {
		delete(b.byEmail, rec.email)
		delete(b.byID, id)
	}
	delete(b.profiles, id)
}

// OnCreateAccount installs a hook for create_user_account; nil removes it.
func (b *Backend) OnCreateAccount(hook CreateAccountHook) {
	b.mu.Lock()
	b.createHook = hook
	b.mu.Unlock()
}

// FailCreateAccount makes every create_user_account call fail with code.
func (b *Backend) FailCreateAccount(code, message string) {
	b.OnCreateAccount(func(context.Context, backend.CreateAccountParams) (backend.ProcedureResult, bool, error) {
		return backend.ProcedureResult{Error: code, Message: message}, true, nil
	})
}

// Actions returns a copy of the audit log.
func (b *Backend) Actions() []backend.ActionLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.actions)
}

// ResetRequests returns the addresses that asked for a recovery email.
func (b *Backend) ResetRequests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.resets)
}

// ResetLink returns the latest unredeemed recovery link sent to email.
func (b *Backend) ResetLink(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	link, ok := b.lastLink[normalizeEmail(email)]
	return link, ok
}

// Session returns the held identity, if any.
func (b *Backend) Session() (session.Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return session.Identity{}, false
	}
	return *b.current, true
}
