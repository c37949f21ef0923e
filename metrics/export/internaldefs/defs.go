package internaldefs

import (
	"github.com/MrEthical07/authkit"
)

// CounterDef names one authkit counter for exporters.
type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// HistogramDef names one authkit histogram for exporters.
type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful logins."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed logins."},
	{ID: authkit.MetricLoginRateLimited, Name: "authkit_login_rate_limited_total", Help: "Login attempts refused by the rate gate."},
	{ID: authkit.MetricLoginDisabled, Name: "authkit_login_disabled_total", Help: "Logins refused because the account is inactive."},
	{ID: authkit.MetricSignupSuccess, Name: "authkit_signup_success_total", Help: "Completed signups."},
	{ID: authkit.MetricSignupFailure, Name: "authkit_signup_failure_total", Help: "Failed signups."},
	{ID: authkit.MetricSignupRateLimited, Name: "authkit_signup_rate_limited_total", Help: "Signup attempts refused by the rate gate."},
	{ID: authkit.MetricSignupRollback, Name: "authkit_signup_rollback_total", Help: "Signups whose profile was deactivated after a setup failure."},
	{ID: authkit.MetricSignupRollbackFailed, Name: "authkit_signup_rollback_failed_total", Help: "Signup rollbacks that exhausted their retries."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Logouts."},
	{ID: authkit.MetricPasswordResetRequest, Name: "authkit_password_reset_request_total", Help: "Password reset emails requested."},
	{ID: authkit.MetricPasswordUpdate, Name: "authkit_password_update_total", Help: "Password updates."},
	{ID: authkit.MetricPasswordRateLimited, Name: "authkit_password_rate_limited_total", Help: "Password operations refused by the rate gate."},
	{ID: authkit.MetricProfileUpdate, Name: "authkit_profile_update_total", Help: "Profile updates."},
	{ID: authkit.MetricProfileRateLimited, Name: "authkit_profile_rate_limited_total", Help: "Profile updates refused by the rate gate."},
	{ID: authkit.MetricCacheHit, Name: "authkit_cache_hit_total", Help: "Profile reads served from cache."},
	{ID: authkit.MetricCacheMiss, Name: "authkit_cache_miss_total", Help: "Profile reads that went to the backend."},
	{ID: authkit.MetricValidationRejected, Name: "authkit_validation_rejected_total", Help: "Inputs rejected by local validation."},
	{ID: authkit.MetricRateLimitHit, Name: "authkit_rate_limit_hit_total", Help: "Rate gate denials across all actions."},
	{ID: authkit.MetricSessionExpired, Name: "authkit_session_expired_total", Help: "Sessions found lost by the monitor."},
	{ID: authkit.MetricBestEffortFailure, Name: "authkit_best_effort_failure_total", Help: "Failed background tasks."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricFlowLatency, Name: "authkit_flow_latency_seconds", Help: "Latency of client flows."},
}

// HistogramUpperBounds holds the finite bucket bounds in seconds. The last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
