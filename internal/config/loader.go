package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "flowpulse.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FLOWPULSE_PORT")
	setString(&cfg.Server.CORSOrigin, "FLOWPULSE_CORS_ORIGIN")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.Reviewer.Enabled, "FLOWPULSE_REVIEWER_ENABLED")
	setString(&cfg.Reviewer.URL, "FLOWPULSE_REVIEWER_URL")
	setString(&cfg.Reviewer.APIKey, "FLOWPULSE_REVIEWER_API_KEY")
	setString(&cfg.Reviewer.Model, "FLOWPULSE_REVIEWER_MODEL")
	setDuration(&cfg.Reviewer.Timeout, "FLOWPULSE_REVIEWER_TIMEOUT")
	setString(&cfg.Logging.Level, "FLOWPULSE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FLOWPULSE_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "FLOWPULSE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FLOWPULSE_BREAKER_TIMEOUT")
	setInt(&cfg.Memory.RecentPayloads, "FLOWPULSE_MEMORY_RECENT_PAYLOADS")
	setDuration(&cfg.Memory.ConsolidateAfter, "FLOWPULSE_MEMORY_CONSOLIDATE_AFTER")
	setDuration(&cfg.Memory.ConsolidateEvery, "FLOWPULSE_MEMORY_CONSOLIDATE_EVERY")
	setDuration(&cfg.Executor.DedupTTL, "FLOWPULSE_EXECUTOR_DEDUP_TTL")
	setInt64(&cfg.Executor.CacheSizeMB, "FLOWPULSE_EXECUTOR_CACHE_SIZE_MB")
	setInt64(&cfg.Pipeline.MaxInFlight, "FLOWPULSE_PIPELINE_MAX_IN_FLIGHT")
	setInt(&cfg.Pipeline.RecordHistory, "FLOWPULSE_PIPELINE_RECORD_HISTORY")
	setStrings(&cfg.Notify.Providers, "FLOWPULSE_NOTIFY_PROVIDERS")
	setString(&cfg.Notify.Discord.WebhookURL, "FLOWPULSE_DISCORD_WEBHOOK_URL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Reviewer.Enabled && cfg.Reviewer.URL == "" {
		return errors.New("reviewer.url is required when reviewer is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Memory.RecentPayloads < 1 {
		return errors.New("memory.recent_payloads must be >= 1")
	}
	if cfg.Pipeline.MaxInFlight < 1 {
		return errors.New("pipeline.max_in_flight must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*dst = parts
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
