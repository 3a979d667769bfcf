// Package config holds process defaults and the environment-driven runtime
// settings of the command consumer.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultRedisAddr points at a local Redis.
	DefaultRedisAddr = "localhost:6379"

	// DefaultStore selects the PostgreSQL repository.
	DefaultStore = StorePostgres

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Runtime tunes the consumer, sinks and callbacks. Every field has an
// environment variable and a default.
type Runtime struct {
	CommandStream     string        `env:"TASKS_COMMAND_STREAM" envDefault:"tasks:commands"`
	RetryKey          string        `env:"TASKS_RETRY_KEY" envDefault:"tasks:commands:retry"`
	DeadLetterStream  string        `env:"TASKS_DEAD_LETTER_STREAM" envDefault:"tasks:commands:dead"`
	EventStream       string        `env:"TASKS_EVENT_STREAM" envDefault:"tasks:events"`
	EventStreamMaxLen int64         `env:"TASKS_EVENT_STREAM_MAXLEN" envDefault:"100000"`
	NotifyChannel     string        `env:"TASKS_NOTIFY_CHANNEL" envDefault:"tasks:notifications"`
	ConsumerGroup     string        `env:"TASKS_CONSUMER_GROUP" envDefault:"taskmanager"`
	ConsumerName      string        `env:"TASKS_CONSUMER_NAME" envDefault:"taskmanager-1"`
	Workers           int           `env:"TASKS_WORKERS" envDefault:"4"`
	BatchSize         int64         `env:"TASKS_BATCH_SIZE" envDefault:"16"`
	PollInterval      time.Duration `env:"TASKS_POLL_INTERVAL" envDefault:"1s"`
	ClaimIdle         time.Duration `env:"TASKS_CLAIM_IDLE" envDefault:"1m"`
	MaxAttempts       int           `env:"TASKS_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff      time.Duration `env:"TASKS_RETRY_BACKOFF" envDefault:"1s"`
	RetryMaxDelay     time.Duration `env:"TASKS_RETRY_MAX_DELAY" envDefault:"5m"`
	DedupTTL          time.Duration `env:"TASKS_DEDUP_TTL" envDefault:"24h"`
	WebhookTimeout    time.Duration `env:"TASKS_WEBHOOK_TIMEOUT" envDefault:"10s"`
	DBMaxConns        int32         `env:"TASKS_DB_MAX_CONNS" envDefault:"10"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	OTelEndpoint      string        `env:"OTEL_EXPORTER_ENDPOINT"`
	APITokens         []string      `env:"TASKS_API_TOKENS" envSeparator:","`
}

// Load parses Runtime from the environment.
func Load() (Runtime, error) {
	var cfg Runtime
	if err := env.Parse(&cfg); err != nil {
		return Runtime{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers <= 0 {
		return Runtime{}, fmt.Errorf("TASKS_WORKERS must be positive, got %d", cfg.Workers)
	}
	if cfg.MaxAttempts <= 0 {
		return Runtime{}, fmt.Errorf("TASKS_MAX_ATTEMPTS must be positive, got %d", cfg.MaxAttempts)
	}
	return cfg, nil
}
