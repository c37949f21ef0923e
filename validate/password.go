package validate

import "unicode"

// DefaultMinPasswordLength applies when no richer policy is configured.
const DefaultMinPasswordLength = 8

// PasswordPolicy decides whether a candidate password is acceptable.
type PasswordPolicy func(password string) Result

// Password runs policy, or the built-in minimum-length rule when policy is
// nil. The password is never trimmed or otherwise altered.
func Password(raw string, policy PasswordPolicy) Result {
	if raw == "" {
		return Invalid(ReasonPasswordRequired)
	}
	if policy == nil {
		policy = MinLength(DefaultMinPasswordLength)
	}
	return policy(raw)
}

// MinLength accepts passwords of at least n runes.
func MinLength(n int) PasswordPolicy {
	if n <= 0 {
		n = DefaultMinPasswordLength
	}
	return func(password string) Result {
		if len([]rune(password)) < n {
			return Invalid(ReasonPasswordTooShort)
		}
		return OK(password)
	}
}

// Composition requires at least n runes and one upper-case letter, one
// lower-case letter and one digit.
func Composition(n int) PasswordPolicy {
	base := MinLength(n)
	return func(password string) Result {
		if res := base(password); !res.Valid {
			return res
		}

		var upper, lower, digit bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		if !upper || !lower || !digit {
			return Invalid(ReasonPasswordWeak)
		}
		return OK(password)
	}
}
