package authkit

import (
	"fmt"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
)

func (s LintSeverity) String() string {
	if s == LintWarn {
		return "warn"
	}
	return "info"
}

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// AtLeast keeps warnings of severity s or higher.
func (ws LintWarnings) AtLeast(s LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= s {
			out = append(out, w)
		}
	}
	return out
}

const (
	lintLongCacheTTL    = time.Hour
	lintShortMinLength  = 8
	lintShortMonitorGap = 5 * time.Second
)

// Lint reports settings that pass Validate but weaken the client. It does
// not call Validate.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	rl := c.RateLimit
	if rl.LoginMaxAttempts == 0 && rl.SignupMaxAttempts == 0 && rl.PasswordResetMaxAttempts == 0 &&
		rl.PasswordUpdateMaxAttempts == 0 && rl.ProfileUpdateMaxAttempts == 0 {
		add("rate_limits_disabled", LintWarn, "every rate limit is disabled")
	} else if rl.LoginMaxAttempts == 0 {
		add("login_rate_limit_disabled", LintWarn, "login attempts are not rate limited")
	}
	if rl.Backend == RateBackendMemory {
		add("rate_limit_process_local", LintInfo, "rate limits are per process; use the redis backend to share them")
	}

	if c.Cache.TTL > lintLongCacheTTL {
		add("cache_ttl_long", LintWarn, "cache TTL %s exceeds %s; disabled accounts stay visible that long", c.Cache.TTL, lintLongCacheTTL)
	}
	if c.Password.MinLength < lintShortMinLength {
		add("password_min_length_short", LintWarn, "password minimum length %d is below %d", c.Password.MinLength, lintShortMinLength)
	}
	if !c.Username.RemoteCheck {
		add("username_remote_check_disabled", LintInfo, "usernames are only checked locally before signup")
	}

	if !c.Monitor.Enabled {
		add("monitor_disabled", LintInfo, "revoked sessions are only noticed on the next refresh")
	} else if c.Monitor.Interval < lintShortMonitorGap {
		add("monitor_interval_short", LintWarn, "monitor polls every %s", c.Monitor.Interval)
	}

	if !c.Audit.Enabled {
		add("audit_disabled", LintWarn, "audit events are not recorded")
	} else if !c.Audit.ForwardToBackend {
		add("audit_not_forwarded", LintInfo, "audit events stay local")
	}

	return ws
}
