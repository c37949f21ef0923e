package authkit

import (
	"io"

	"github.com/MrEthical07/authkit/backend"
	internalaudit "github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/internal/flows"
	"github.com/MrEthical07/authkit/session"
)

// UserProfile is the application-level account row.
type UserProfile = session.UserProfile

// Identity is the auth provider's view of the signed-in account.
type Identity = session.Identity

// Role is the account role stored on the profile row.
type Role = session.Role

const (
	RoleMember = session.RoleMember
	RoleAdmin  = session.RoleAdmin
)

// Backend is the hosted service contract. See package backend.
type Backend = backend.Backend

type (
	AuthProvider        = backend.AuthProvider
	ProfileStore        = backend.ProfileStore
	Procedures          = backend.Procedures
	ProfileFields       = backend.ProfileFields
	CreateAccountParams = backend.CreateAccountParams
	ProcedureResult     = backend.ProcedureResult
	UsernameCheck       = backend.UsernameCheck
	ActionLog           = backend.ActionLog
)

// SignupRequest is the raw signup form. Name defaults to the username.
type SignupRequest = flows.SignupRequest

// ProfileUpdate carries the fields a user may change on their own profile.
type ProfileUpdate = backend.ProfileFields

// Result is the uniform outcome of every Client flow. On failure Error is
// a local code or a passthrough service code, Message is localized, and
// Err keeps the underlying error for errors.Is and logging.
type Result struct {
	Success bool
	User    *UserProfile
	Message string
	Error   ErrorCode
	Err     error
}

// AuditEvent is a structured audit record emitted by the client.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
