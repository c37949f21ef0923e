package validate

import (
	"context"
	"regexp"
	"strings"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._]*[a-z0-9])?$`)

// UsernameVerdict is the authoritative answer of the remote check.
type UsernameVerdict struct {
	Valid  bool
	Reason string
}

// UsernameChecker performs the authoritative remote uniqueness and format
// check.
type UsernameChecker interface {
	CheckUsername(ctx context.Context, username string) (UsernameVerdict, error)
}

// UsernameCheckerFunc adapts a function to [UsernameChecker].
type UsernameCheckerFunc func(ctx context.Context, username string) (UsernameVerdict, error)

// CheckUsername calls f.
func (f UsernameCheckerFunc) CheckUsername(ctx context.Context, username string) (UsernameVerdict, error) {
	return f(ctx, username)
}

// UsernameLocal runs only the local pre-check on the normalized value.
func UsernameLocal(raw string) Result {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return Invalid(ReasonUsernameRequired)
	}
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return Invalid(ReasonUsernameLength)
	}
	if !usernamePattern.MatchString(username) || strings.Contains(username, "..") {
		return Invalid(ReasonUsernameFormat)
	}
	return OK(username)
}

// Username normalizes raw, runs the local pre-check and then asks checker.
// A nil checker means local-only. Any checker error or panic is reported
// as an invalid result.
func Username(ctx context.Context, raw string, checker UsernameChecker) (res Result) {
	local := UsernameLocal(raw)
	if !local.Valid || checker == nil {
		return local
	}

	defer func() {
		if r := recover(); r != nil {
			res = Invalid(ReasonUsernameCheck)
		}
	}()

	verdict, err := checker.CheckUsername(ctx, local.Value)
	if err != nil {
		return Invalid(ReasonUsernameCheck)
	}
	if !verdict.Valid {
		if verdict.Reason == "" {
			return Invalid(ReasonUsernameTaken)
		}
		return Invalid(verdict.Reason)
	}
	return local
}
