// Package config loads server configuration from RINGSIDE_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "RINGSIDE"

// Environments the runtime recognises. Anything else is rejected at load time.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvEmulator    = "emulator"
	EnvProduction  = "production"
)

// Server captures process-level configuration.
type Server struct {
	Env           string        `envconfig:"ENV"            default:"development"`
	Addr          string        `envconfig:"ADDR"           default:":8080"`
	JWTSigningKey string        `envconfig:"JWT_SIGNING_KEY"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
	LogLevel      string        `envconfig:"LOG_LEVEL"      default:"info"`

	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig `envconfig:"RATELIMIT"`
}

// RedisConfig configures the scheduler lease client (RINGSIDE_REDIS_*). An
// empty URL disables the lease and every replica sweeps.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE"      default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT"   default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT"   default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT"  default:"3s"`
}

// KafkaConfig configures the audit outbox relay (RINGSIDE_KAFKA_*). Empty
// Brokers disables it.
type KafkaConfig struct {
	Brokers       []string      `envconfig:"BROKERS"`
	Topic         string        `envconfig:"AUDIT_TOPIC"    default:"ringside.audit"`
	ClientID      string        `envconfig:"CLIENT_ID"      default:"ringside-audit-relay"`
	RelayInterval time.Duration `envconfig:"RELAY_INTERVAL" default:"2s"`
	RelayBatch    int           `envconfig:"RELAY_BATCH"    default:"100"`
}

// RateLimitConfig sets per-client-IP budgets (RINGSIDE_RATELIMIT_*). Buckets
// live in Redis when it is configured and in process memory otherwise.
type RateLimitConfig struct {
	Disabled bool          `envconfig:"DISABLED"`
	Window   time.Duration `envconfig:"WINDOW" default:"1m"`
	Redeem   int           `envconfig:"REDEEM" default:"30"`
	Write    int           `envconfig:"WRITE"  default:"120"`
}

// FromEnv builds a Server config from the environment.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Server{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c *Server) validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDevelopment
	}
	switch c.Env {
	case EnvDevelopment, EnvTest, EnvStaging, EnvEmulator, EnvProduction:
	default:
		return fmt.Errorf("RINGSIDE_ENV %q is not a known environment", c.Env)
	}
	if c.JWTSigningKey == "" {
		if c.IsProduction() {
			return fmt.Errorf("RINGSIDE_JWT_SIGNING_KEY is required in production")
		}
		c.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("RINGSIDE_SWEEP_INTERVAL must be positive")
	}
	if !c.RateLimit.Disabled && (c.RateLimit.Window <= 0 || c.RateLimit.Redeem <= 0 || c.RateLimit.Write <= 0) {
		return fmt.Errorf("RINGSIDE_RATELIMIT_* budgets must be positive")
	}
	return nil
}

// IsProduction reports whether the runtime is a production deployment.
func (c Server) IsProduction() bool {
	return c.Env == EnvProduction
}
