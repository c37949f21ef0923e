package authkit

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/MrEthical07/authkit/avatar"
	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/internal/tasks"
	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Client]. It is single-use.
type Builder struct {
	config  Config
	backend Backend
	redis   redis.UniversalClient

	auditSink       AuditSink
	logger          *slog.Logger
	passwordPolicy  validate.PasswordPolicy
	usernameChecker validate.UsernameChecker
	markers         session.MarkerStore
	now             func() time.Time
	rng             *rand.Rand

	built bool
}

// New starts a Builder with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBackend sets the hosted service adapter. Required.
func (b *Builder) WithBackend(be Backend) *Builder {
	b.backend = be
	return b
}

// WithRedis enables the Redis rate gate and marker store. The rate gate
// only uses it when RateLimit.Backend is "redis".
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink adds a local sink next to the backend forwarder.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithPasswordPolicy overrides the configured password policy.
func (b *Builder) WithPasswordPolicy(policy validate.PasswordPolicy) *Builder {
	b.passwordPolicy = policy
	return b
}

// WithUsernameChecker overrides the remote username check. Without it the
// backend's validate_username procedure is used when Username.RemoteCheck
// is on.
func (b *Builder) WithUsernameChecker(checker validate.UsernameChecker) *Builder {
	b.usernameChecker = checker
	return b
}

// WithMarkerStore overrides where the signed-in marker is kept.
func (b *Builder) WithMarkerStore(store session.MarkerStore) *Builder {
	b.markers = store
	return b
}

// WithClock injects the time source used by the cache, rate gate and
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithRand injects the random source used for avatar assignment.
func (b *Builder) WithRand(rng *rand.Rand) *Builder {
	b.rng = rng
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the flow latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.backend == nil {
		return nil, errors.New("backend required")
	}
	if cfg.RateLimit.Backend == RateBackendRedis && b.redis == nil {
		return nil, errors.New("RateLimit redis backend requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		config:  cfg,
		backend: b.backend,
		logger:  logger,
		now:     now,
		metrics: NewMetrics(cfg.Metrics),
		cache:   session.NewCache(cfg.Cache.TTL, now),
		avatars: avatar.NewPicker(cfg.Avatar.BaseURL, b.rng),
		subs:    make(map[uint64]func(*UserProfile)),
	}

	// -------- RATE GATE --------
	switch cfg.RateLimit.Backend {
	case RateBackendRedis:
		c.gate = rate.NewRedis(b.redis, cfg.RateLimit.Window, cfg.RateLimit.RedisPrefix)
	default:
		c.gate = rate.NewMemory(cfg.RateLimit.Window, now)
	}

	// -------- MARKER --------
	if cfg.Marker.Enabled {
		switch {
		case b.markers != nil:
			c.markers = b.markers
		case b.redis != nil:
			c.markers = session.NewRedisMarkers(b.redis, cfg.Marker.RedisPrefix)
		default:
			c.markers = session.NewMemoryMarkers(now)
		}
	}

	// -------- VALIDATION STRATEGIES --------
	c.passwordPolicy = b.passwordPolicy
	if c.passwordPolicy == nil {
		c.passwordPolicy = cfg.Password.Policy()
	}
	c.usernameChecker = b.usernameChecker
	if c.usernameChecker == nil && cfg.Username.RemoteCheck {
		c.usernameChecker = backendUsernameChecker{procs: b.backend}
	}

	// -------- BACKGROUND WORK --------
	c.tasks = tasks.New(cfg.Tasks.Timeout,
		tasks.WithLogger(logger),
		tasks.WithFailureHook(func(string) {
			c.metrics.Inc(MetricBestEffortFailure)
		}),
	)
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, c.auditSinks(b.auditSink), logger)

	c.flow = c.buildFlows()

	b.built = true

	return c, nil
}
