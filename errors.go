package authkit

import (
	"errors"

	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/session"
)

var (
	// ErrNotReady is returned when a Client was not produced by Build.
	ErrNotReady = errors.New("client not ready")
	// ErrMissingFields reports an empty required input.
	ErrMissingFields = errors.New("missing required fields")
	// ErrRateLimited matches every rate-gate denial.
	ErrRateLimited = rate.ErrRateLimited
	// ErrInvalidEmail reports an email rejected by the local validator.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword reports a password rejected by the password policy.
	ErrWeakPassword = errors.New("weak password")
	// ErrUsernameInvalid reports a username rejected locally or by the remote check.
	ErrUsernameInvalid = errors.New("invalid username")
	// ErrUserNotFound reports an authenticated identity with no profile row.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserDisabled reports a profile with is_active = false.
	ErrUserDisabled = errors.New("user disabled")
	// ErrDatabase reports a failed profile read or write.
	ErrDatabase = errors.New("database error")
	// ErrNotAuthenticated reports a call that needs a signed-in identity.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnexpected wraps panics and unclassified failures at the flow boundary.
	ErrUnexpected = errors.New("unexpected error")

	// ErrProfileNotFound is what ProfileStore implementations return for a missing row.
	ErrProfileNotFound = session.ErrProfileNotFound
	// ErrNoSession is what AuthProvider implementations return when nobody is signed in.
	ErrNoSession = session.ErrNoSession
)

// ErrorCode is the stable, user-facing failure code carried by [Result].
// Codes reported by the backend service pass through unchanged.
type ErrorCode string

const (
	CodeMissingFields    ErrorCode = "missing-fields"
	CodeRateLimited      ErrorCode = "rate-limited"
	CodeInvalidEmail     ErrorCode = "invalid-email"
	CodeWeakPassword     ErrorCode = "weak-password"
	CodeUsernameInvalid  ErrorCode = "username-invalid"
	CodeUserNotFound     ErrorCode = "user-not-found"
	CodeUserDisabled     ErrorCode = "user-disabled"
	CodeDatabase         ErrorCode = "database-error"
	CodeNotAuthenticated ErrorCode = "not-authenticated"
	CodeUnexpected       ErrorCode = "unexpected"
	// CodeForbidden is only produced by HTTP role guards.
	CodeForbidden ErrorCode = "forbidden"
)

// Remote service codes with a dedicated translation.
const (
	CodeInvalidCredentials ErrorCode = "invalid_credentials"
	CodeEmailNotConfirmed  ErrorCode = "email_not_confirmed"
	CodeUserExists         ErrorCode = "user_already_exists"
	CodeEmailExists        ErrorCode = "email_exists"
	CodeServiceWeakPass    ErrorCode = "weak_password"
	CodeEmailSendLimit     ErrorCode = "over_email_send_rate_limit"
	CodeRequestLimit       ErrorCode = "over_request_rate_limit"
	CodeSamePassword       ErrorCode = "same_password"
	CodeSessionNotFound    ErrorCode = "session_not_found"
	CodeSessionExpired     ErrorCode = "session_expired"
	CodeServiceUserMissing ErrorCode = "user_not_found"
	CodeUsernameTaken      ErrorCode = "username_taken"
	CodeNetwork            ErrorCode = "network_error"
)

var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrMissingFields, CodeMissingFields},
	{ErrRateLimited, CodeRateLimited},
	{ErrInvalidEmail, CodeInvalidEmail},
	{ErrWeakPassword, CodeWeakPassword},
	{ErrUsernameInvalid, CodeUsernameInvalid},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrUserDisabled, CodeUserDisabled},
	{ErrDatabase, CodeDatabase},
	{ErrNotAuthenticated, CodeNotAuthenticated},
	{ErrNotReady, CodeUnexpected},
	{ErrUnexpected, CodeUnexpected},
}
