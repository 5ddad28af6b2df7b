package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tidewise/tidewise/internal/auth"
	"github.com/tidewise/tidewise/internal/database"
	"github.com/tidewise/tidewise/internal/grouping"
	"github.com/tidewise/tidewise/internal/scoring"
	"github.com/tidewise/tidewise/internal/telemetry"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"tidewise.yaml",
	"tidewise.yml",
	"/etc/tidewise/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DevSigningKey is the JWT key used when none is configured outside production.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: database.DefaultConfig(),
		Telemetry: telemetry.Config{
			Enabled:      false,
			OTLPEndpoint:   "localhost:4317",
			Insecure:       true,
			SampleRatio:    1,
			MetricInterval: telemetry.DefaultMetricInterval,
		},
		Auth: auth.JWTConfig{
			SigningKey:        DevSigningKey,
			Issuer:            "https://api.tidewise.app",
			Audience:          "tidewise-api",
			AccessTokenExpiry: auth.DefaultAccessTokenExpiry,
		},
		Scoring: ScoringConfig{
			Policy: scoring.PolicyBackoff,
		},
		Catalog: CatalogConfig{
			CacheTTL:   time.Minute,
			MaxRetries: 3,
		},
		Worker: WorkerConfig{
			Subscription:   "tidewise-score-day",
			ResultsTopic:   "tidewise-suggestions",
			MaxOutstanding: 10,
			JobTimeout:     30 * time.Second,
			Grouping:       grouping.ModeTimeAndActivity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration with layered sources:
//  1. Defaults from Default
//  2. The YAML file at path, or the first file found in CONFIG_PATH or
//     DefaultConfigPaths when path is empty
//  3. Environment variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.IsProduction() && cfg.Auth.SigningKey == DevSigningKey {
		return nil, fmt.Errorf("configuration validation failed: auth.signing_key must be set in production")
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variables onto config paths. Unlisted
// variables are ignored.
var envMappings = map[string]string{
	"app_env":     "environment",
	"app_port":    "server.port",
	"require_tls": "server.require_tls",

	"db_enabled":           "database.enabled",
	"db_host":              "database.host",
	"db_port":              "database.port",
	"db_user":              "database.user",
	"db_password":          "database.password",
	"db_name":              "database.name",
	"db_ssl_mode":          "database.ssl_mode",
	"db_max_open_conns":    "database.max_open_conns",
	"db_max_idle_conns":    "database.max_idle_conns",
	"db_conn_max_lifetime": "database.conn_max_lifetime",

	"otel_enabled":                "telemetry.enabled",
	"otel_exporter_otlp_endpoint": "telemetry.otlp_endpoint",
	"otel_exporter_otlp_insecure": "telemetry.insecure",
	"otel_sample_ratio":           "telemetry.sample_ratio",
	"otel_metric_export_interval": "telemetry.metric_interval",

	"jwt_signing_key": "auth.signing_key",
	"jwt_issuer":      "auth.issuer",
	"jwt_audience":    "auth.audience",

	"scoring_policy":      "scoring.policy",
	"scoring_concurrency": "scoring.concurrency",

	"catalog_cache_ttl":   "catalog.cache_ttl",
	"catalog_seed_file":   "catalog.seed_file",
	"catalog_max_retries": "catalog.max_retries",

	"pubsub_project_id":      "worker.project_id",
	"pubsub_subscription":    "worker.subscription",
	"pubsub_results_topic":   "worker.results_topic",
	"worker_max_outstanding": "worker.max_outstanding",
	"worker_job_timeout":     "worker.job_timeout",
	"worker_grouping":        "worker.grouping",

	"log_level":  "log.level",
	"log_format": "log.format",
}

// envTransformFunc maps an environment variable name to a config path.
// Returning "" skips the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
