package validate

import (
	"regexp"
	"strings"
)

// MaxEmailLength is the RFC 5321 path limit.
const MaxEmailLength = 254

const maxLocalPartLength = 64

// The local part accepts the RFC 5322 atext set; the TLD may be an
// IDN A-label.
var emailPattern = regexp.MustCompile(
	`^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~.\-]+` +
		`@[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9\-]*[a-z0-9])?)*` +
		`\.(?:[a-z]{2,}|xn--[a-z0-9\-]*[a-z0-9])$`,
)

// disposableDomains is matched by suffix, so subdomains are rejected too.
var disposableDomains = []string{
	"10minutemail.com",
	"burnermail.io",
	"dispostable.com",
	"emailondeck.com",
	"fakeinbox.com",
	"getnada.com",
	"guerrillamail.com",
	"guerrillamail.net",
	"mailinator.com",
	"maildrop.cc",
	"mintemail.com",
	"mohmal.com",
	"sharklasers.com",
	"spamgourmet.com",
	"temp-mail.org",
	"tempail.com",
	"tempmail.com",
	"throwawaymail.com",
	"trashmail.com",
	"yopmail.com",
}

// Email trims and lowercases raw, then checks structure, length and the
// disposable-domain deny-list.
func Email(raw string) Result {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return Invalid(ReasonEmailRequired)
	}
	if len(email) > MaxEmailLength {
		return Invalid(ReasonEmailTooLong)
	}
	if strings.Count(email, "@") != 1 || strings.Contains(email, "..") {
		return Invalid(ReasonEmailFormat)
	}

	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" || len(local) > maxLocalPartLength {
		return Invalid(ReasonEmailFormat)
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Invalid(ReasonEmailFormat)
	}
	if !emailPattern.MatchString(email) {
		return Invalid(ReasonEmailFormat)
	}
	if IsDisposable(domain) {
		return Invalid(ReasonEmailDisposable)
	}

	return OK(email)
}

// IsDisposable reports whether domain is, or is a subdomain of, a listed
// throwaway-mail provider.
func IsDisposable(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, d := range disposableDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// DisposableDomains returns a copy of the deny-list.
func DisposableDomains() []string {
	out := make([]string, len(disposableDomains))
	copy(out, disposableDomains)
	return out
}
