// Package config loads castingd settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	jwtkit "github.com/PaulFidika/casting/jwt"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"
)

// Config is decoded from environment variables; defaults live in the tags.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=json"`

	// Empty DatabaseURL keeps the catalog in memory and disables audit jobs.
	DatabaseURL string `env:"DATABASE_URL"`
	DBSchema    string `env:"DB_SCHEMA,default=public"`
	// Empty RedisURL keeps rate limits and login state in process.
	RedisURL string `env:"REDIS_URL"`

	Issuer   string `env:"AUTH_ISSUER"`
	Audience string `env:"AUTH_AUDIENCE,default=casting"`
	// JWKSURL is discovered from the issuer when empty.
	JWKSURL      string        `env:"AUTH_JWKS_URL"`
	Algorithms   []string      `env:"AUTH_ALGORITHMS"`
	FetchTimeout time.Duration `env:"AUTH_FETCH_TIMEOUT,default=5s"`
	Leeway       time.Duration `env:"AUTH_LEEWAY,default=0s"`
	WarmKeys     bool          `env:"AUTH_WARM_KEYS,default=true"`
	Realm        string        `env:"AUTH_REALM,default=casting"`

	// Login is enabled when ClientID is set.
	ClientID     string        `env:"AUTH_CLIENT_ID"`
	ClientSecret string        `env:"AUTH_CLIENT_SECRET"`
	RedirectURL  string        `env:"AUTH_REDIRECT_URL"`
	StateTTL     time.Duration `env:"AUTH_STATE_TTL,default=10m"`

	RateLimitRead   int           `env:"RATE_LIMIT_READ,default=120"`
	RateLimitWrite  int           `env:"RATE_LIMIT_WRITE,default=30"`
	RateLimitLogin  int           `env:"RATE_LIMIT_LOGIN,default=10"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`

	AuditRetention     time.Duration `env:"AUDIT_RETENTION,default=720h"`
	AuditPruneSchedule string        `env:"AUDIT_PRUNE_SCHEDULE,default=@daily"`
	AuditWorkers       int           `env:"AUDIT_WORKERS,default=2"`
	AuditBuffer        int           `env:"AUDIT_BUFFER,default=1024"`
	AuditInsertTimeout time.Duration `env:"AUDIT_INSERT_TIMEOUT,default=2s"`
}

// Load decodes the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the process cannot start with.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("config: AUTH_ISSUER is required")
	}
	if c.Audience == "" {
		return errors.New("config: AUTH_AUDIENCE is required")
	}
	if c.ClientID != "" && c.RedirectURL == "" {
		return errors.New("config: AUTH_REDIRECT_URL is required when AUTH_CLIENT_ID is set")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config: LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	for _, alg := range c.Algorithms {
		if !slices.Contains(jwtkit.SupportedAlgorithms(), alg) {
			return fmt.Errorf("config: AUTH_ALGORITHMS: unsupported algorithm %q", alg)
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoginEnabled reports whether /login and /callback are served.
func (c Config) LoginEnabled() bool { return c.ClientID != "" }

// NewLogger builds the process logger from the log settings.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if c.LogFormat == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return log
}
