package authkit

import (
	"errors"
	"net/url"
	"time"

	"github.com/MrEthical07/authkit/avatar"
	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// Config holds every tunable of a Client. Start from [DefaultConfig] and
// override what you need; [Config.Validate] runs during Build.
type Config struct {
	Locale        Locale              `koanf:"locale"`
	Cache         CacheConfig         `koanf:"cache"`
	RateLimit     RateLimitConfig     `koanf:"rate_limit"`
	Password      PasswordConfig      `koanf:"password"`
	Username      UsernameConfig      `koanf:"username"`
	Avatar        AvatarConfig        `koanf:"avatar"`
	PasswordReset PasswordResetConfig `koanf:"password_reset"`
	Signup        SignupConfig        `koanf:"signup"`
	Monitor       MonitorConfig       `koanf:"monitor"`
	Marker        MarkerConfig        `koanf:"marker"`
	Audit         AuditConfig         `koanf:"audit"`
	Tasks         TasksConfig         `koanf:"tasks"`
	Metrics       MetricsConfig       `koanf:"metrics"`
}

// CacheConfig tunes the identity cache.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// RateBackend selects where attempt counters live.
type RateBackend string

const (
	RateBackendMemory RateBackend = "memory"
	RateBackendRedis  RateBackend = "redis"
)

// RateLimitConfig bounds attempts per action class inside Window. A max of
// zero disables the gate for that class.
type RateLimitConfig struct {
	Backend     RateBackend   `koanf:"backend"`
	Window      time.Duration `koanf:"window"`
	RedisPrefix string        `koanf:"redis_prefix"`

	LoginMaxAttempts          int `koanf:"login_max_attempts"`
	SignupMaxAttempts         int `koanf:"signup_max_attempts"`
	PasswordResetMaxAttempts  int `koanf:"password_reset_max_attempts"`
	PasswordUpdateMaxAttempts int `koanf:"password_update_max_attempts"`
	ProfileUpdateMaxAttempts  int `koanf:"profile_update_max_attempts"`
}

// PasswordConfig selects the built-in password policy. A policy passed to
// Builder.WithPasswordPolicy wins over both fields.
type PasswordConfig struct {
	MinLength          int  `koanf:"min_length"`
	RequireComposition bool `koanf:"require_composition"`
}

// Policy returns the built-in policy these settings select.
func (p PasswordConfig) Policy() validate.PasswordPolicy {
	if p.RequireComposition {
		return validate.Composition(p.MinLength)
	}
	return validate.MinLength(p.MinLength)
}

// UsernameConfig controls the authoritative remote username check.
type UsernameConfig struct {
	RemoteCheck bool `koanf:"remote_check"`
}

// AvatarConfig points at the avatar image service.
type AvatarConfig struct {
	BaseURL string `koanf:"base_url"`
}

// PasswordResetConfig is passed to the reset email request.
type PasswordResetConfig struct {
	RedirectURL string `koanf:"redirect_url"`
}

// SignupConfig tunes account creation and its compensation step.
type SignupConfig struct {
	DefaultRole      Role          `koanf:"default_role"`
	RollbackAttempts int           `koanf:"rollback_attempts"`
	RollbackBackoff  time.Duration `koanf:"rollback_backoff"`
}

// MonitorConfig tunes background session-liveness polling after login.
type MonitorConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	ExpiryLeeway time.Duration `koanf:"expiry_leeway"`
}

// MarkerConfig controls the cache-busting signed-in marker.
type MarkerConfig struct {
	Enabled     bool          `koanf:"enabled"`
	RedisPrefix string        `koanf:"redis_prefix"`
	TTL         time.Duration `koanf:"ttl"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
	DropIfFull bool `koanf:"drop_if_full"`
	// ForwardToBackend also records every event through log_user_action.
	ForwardToBackend bool          `koanf:"forward_to_backend"`
	ForwardTimeout   time.Duration `koanf:"forward_timeout"`
}

// TasksConfig bounds detached best-effort work.
type TasksConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `koanf:"enabled"`
	EnableLatencyHistograms bool `koanf:"enable_latency_histograms"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Locale: LocaleEN,
		Cache: CacheConfig{
			TTL: session.DefaultTTL,
		},
		RateLimit: RateLimitConfig{
			Backend:                   RateBackendMemory,
			Window:                    rate.DefaultWindow,
			RedisPrefix:               "authkit",
			LoginMaxAttempts:          5,
			SignupMaxAttempts:         3,
			PasswordResetMaxAttempts:  3,
			PasswordUpdateMaxAttempts: 5,
			ProfileUpdateMaxAttempts:  10,
		},
		Password: PasswordConfig{
			MinLength: validate.DefaultMinPasswordLength,
		},
		Username: UsernameConfig{
			RemoteCheck: true,
		},
		Avatar: AvatarConfig{
			BaseURL: avatar.DefaultBaseURL,
		},
		Signup: SignupConfig{
			DefaultRole:      RoleMember,
			RollbackAttempts: 3,
			RollbackBackoff:  200 * time.Millisecond,
		},
		Monitor: MonitorConfig{
			Enabled:      true,
			Interval:     60 * time.Second,
			Timeout:      10 * time.Second,
			ExpiryLeeway: 5 * time.Second,
		},
		Marker: MarkerConfig{
			Enabled:     true,
			RedisPrefix: "authkit",
			TTL:         24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:          true,
			BufferSize:       256,
			DropIfFull:       true,
			ForwardToBackend: true,
			ForwardTimeout:   5 * time.Second,
		},
		Tasks: TasksConfig{
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate rejects configurations the Client cannot run with.
func (c *Config) Validate() error {
	switch c.Locale {
	case LocaleEN, LocaleVI:
	default:
		return errors.New("Locale must be 'en' or 'vi'")
	}

	if c.Cache.TTL <= 0 {
		return errors.New("Cache TTL must be > 0")
	}

	// Rate limit
	switch c.RateLimit.Backend {
	case RateBackendMemory, RateBackendRedis:
	default:
		return errors.New("RateLimit Backend must be 'memory' or 'redis'")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}
	if c.RateLimit.Window < time.Millisecond {
		return errors.New("RateLimit Window must be at least 1ms")
	}
	if c.RateLimit.Backend == RateBackendRedis && c.RateLimit.RedisPrefix == "" {
		return errors.New("RateLimit RedisPrefix must be set for the redis backend")
	}
	for _, max := range []int{
		c.RateLimit.LoginMaxAttempts,
		c.RateLimit.SignupMaxAttempts,
		c.RateLimit.PasswordResetMaxAttempts,
		c.RateLimit.PasswordUpdateMaxAttempts,
		c.RateLimit.ProfileUpdateMaxAttempts,
	} {
		if max < 0 {
			return errors.New("RateLimit max attempts must be >= 0")
		}
	}

	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	if c.Avatar.BaseURL != "" {
		u, err := url.Parse(c.Avatar.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Avatar BaseURL must be an absolute URL")
		}
	}
	if c.PasswordReset.RedirectURL != "" {
		if _, err := url.Parse(c.PasswordReset.RedirectURL); err != nil {
			return errors.New("PasswordReset RedirectURL is not a valid URL")
		}
	}

	// Signup
	switch c.Signup.DefaultRole {
	case RoleMember, RoleAdmin:
	default:
		return errors.New("Signup DefaultRole must be 'member' or 'admin'")
	}
	if c.Signup.RollbackAttempts < 1 {
		return errors.New("Signup RollbackAttempts must be >= 1")
	}
	if c.Signup.RollbackBackoff <= 0 {
		return errors.New("Signup RollbackBackoff must be > 0")
	}

	if c.Monitor.Enabled {
		if c.Monitor.Interval <= 0 {
			return errors.New("Monitor Interval must be > 0")
		}
		if c.Monitor.Timeout < 0 {
			return errors.New("Monitor Timeout must be >= 0")
		}
		if c.Monitor.ExpiryLeeway < 0 {
			return errors.New("Monitor ExpiryLeeway must be >= 0")
		}
	}

	if c.Marker.Enabled && c.Marker.TTL < 0 {
		return errors.New("Marker TTL must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Tasks.Timeout <= 0 {
		return errors.New("Tasks Timeout must be > 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
