package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/MrEthical07/authkit"
	"github.com/MrEthical07/authkit/backend/memory"
	"github.com/MrEthical07/authkit/backend/rest"
	"github.com/MrEthical07/authkit/session"
)

const (
	backendMemory = "memory"
	backendREST   = "rest"
)

// appConfig is the whole CLI configuration. The client section uses the
// same keys as authkit.Config.
type appConfig struct {
	Backend   string         `koanf:"backend"`
	LogLevel  string         `koanf:"log_level"`
	LogFormat string         `koanf:"log_format"`
	RedisAddr string         `koanf:"redis_addr"`
	REST      restConfig     `koanf:"rest"`
	Memory    memoryConfig   `koanf:"memory"`
	Client    authkit.Config `koanf:"client"`
}

type restConfig struct {
	URL        string        `koanf:"url"`
	APIKey     string        `koanf:"api_key"`
	UsersTable string        `koanf:"users_table"`
	Timeout    time.Duration `koanf:"timeout"`
}

type memoryConfig struct {
	TokenTTL time.Duration `koanf:"token_ttl"`
	Users    []seedUser    `koanf:"users"`
}

// seedUser is an account created in the memory backend at startup.
type seedUser struct {
	Email    string `koanf:"email"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	Username string `koanf:"username"`
	Role     string `koanf:"role"`
	Inactive bool   `koanf:"inactive"`
}

func defaultAppConfig() appConfig {
	return appConfig{
		Backend:   backendMemory,
		LogLevel:  "warn",
		LogFormat: "text",
		REST:      restConfig{Timeout: 10 * time.Second},
		Memory:    memoryConfig{TokenTTL: time.Hour},
		Client:    authkit.DefaultConfig(),
	}
}

// flagKeys maps command-line flags onto config keys. Flags not listed here
// are command options and never reach the config.
var flagKeys = map[string]string{
	"backend":    "backend",
	"log-level":  "log_level",
	"log-format": "log_format",
	"redis-addr": "redis_addr",
	"url":        "rest.url",
	"api-key":    "rest.api_key",
	"locale":     "client.locale",
}

// loadConfig layers defaults, the YAML file at path (if any) and the flags
// the user actually set, in that order.
func loadConfig(path string, flags *pflag.FlagSet) (appConfig, error) {
	cfg := defaultAppConfig()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.With("path", path).Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return cfg, oops.Wrapf(err, "load flags")
		}
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, oops.Wrapf(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c appConfig) validate() error {
	switch c.Backend {
	case backendMemory:
	case backendREST:
		if c.REST.URL == "" || c.REST.APIKey == "" {
			return oops.Code("config_invalid").Errorf("rest backend needs url and api_key")
		}
	default:
		return oops.Code("config_invalid").With("backend", c.Backend).Errorf("unknown backend %q", c.Backend)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return oops.Code("config_invalid").Errorf("invalid log format %q: must be 'json' or 'text'", c.LogFormat)
	}
	return c.Client.Validate()
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, oops.Code("config_invalid").Wrapf(err, "invalid log level %q", s)
	}
	return lvl, nil
}

func (c appConfig) logger() *slog.Logger {
	lvl, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newBackend builds the configured backend, seeding memory users.
func (c appConfig) newBackend(ctx context.Context) (authkit.Backend, error) {
	if c.Backend == backendREST {
		return rest.New(rest.Config{
			URL:        c.REST.URL,
			APIKey:     c.REST.APIKey,
			UsersTable: c.REST.UsersTable,
			Timeout:    c.REST.Timeout,
		})
	}

	be, err := memory.New(memory.Config{TokenTTL: c.Memory.TokenTTL})
	if err != nil {
		return nil, err
	}
	for _, u := range c.Memory.Users {
		role := session.Role(u.Role)
		if role == "" {
			role = c.Client.Signup.DefaultRole
		}
		if _, err := be.AddUser(ctx, memory.User{
			Email:    u.Email,
			Password: u.Password,
			Name:     u.Name,
			Username: u.Username,
			Role:     role,
			Inactive: u.Inactive,
		}); err != nil {
			return nil, oops.With("email", u.Email).Wrapf(err, "seed memory user")
		}
	}
	return be, nil
}

// newClient builds an authkit client. The returned cleanup closes the
// client and any Redis connection.
func (c appConfig) newClient(ctx context.Context) (*authkit.Client, func(), error) {
	be, err := c.newBackend(ctx)
	if err != nil {
		return nil, nil, err
	}

	b := authkit.New().WithConfig(c.Client).WithBackend(be).WithLogger(c.logger())

	var rdb *redis.Client
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		b = b.WithRedis(rdb)
	}

	client, err := b.Build()
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, err
	}
	return client, func() {
		client.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}, nil
}
