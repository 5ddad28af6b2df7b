// Package config loads service configuration from defaults, an optional YAML
// file and environment variables.
package config

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidewise/tidewise/internal/auth"
	"github.com/tidewise/tidewise/internal/database"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/scoring"
	"github.com/tidewise/tidewise/internal/telemetry"
	"github.com/tidewise/tidewise/internal/validation"
)

// Config is the configuration shared by the api, worker and CLI binaries.
type Config struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production test"`

	Server    ServerConfig     `koanf:"server"`
	Database  database.Config  `koanf:"database"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Auth      auth.JWTConfig   `koanf:"auth"`
	Scoring   ScoringConfig    `koanf:"scoring"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Worker    WorkerConfig     `koanf:"worker"`
	Log       LogConfig        `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool `koanf:"require_tls"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ScoringConfig selects the scoring policy.
type ScoringConfig struct {
	Policy scoring.Policy `koanf:"policy" validate:"oneof=backoff bucket"`

	// Concurrency is the number of activities scored in parallel.
	// Zero uses GOMAXPROCS.
	Concurrency int `koanf:"concurrency" validate:"gte=0,lte=256"`
}

// CatalogConfig configures the activity catalog.
type CatalogConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`

	// SeedFile is a JSON array of activities loaded into the in-memory
	// catalog when the database is disabled.
	SeedFile string `koanf:"seed_file"`

	MaxRetries uint64 `koanf:"max_retries" validate:"lte=10"`
}

// WorkerConfig configures the Pub/Sub scoring worker.
type WorkerConfig struct {
	ProjectID      string        `koanf:"project_id"`
	Subscription   string        `koanf:"subscription"`
	ResultsTopic   string        `koanf:"results_topic"`
	MaxOutstanding int           `koanf:"max_outstanding" validate:"gte=1"`
	JobTimeout     time.Duration `koanf:"job_timeout" validate:"gt=0"`

	// Grouping is used for jobs that do not name one.
	Grouping grouping.Mode `koanf:"grouping" validate:"oneof=none time timeAndActivity"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ZerologLevel returns the configured level, defaulting to info.
func (c LogConfig) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// NewLogger builds the root logger for a binary. Console format is meant
// for local development.
func (c LogConfig) NewLogger(w io.Writer, service, version string) zerolog.Logger {
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(c.ZerologLevel()).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
