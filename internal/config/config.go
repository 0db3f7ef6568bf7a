// Package config provides hierarchical configuration loading for flowpulse.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the flowpulse service.
type Config struct {
	Server   Server   `yaml:"server"`
	NATS     NATS     `yaml:"nats"`
	Reviewer Reviewer `yaml:"reviewer"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Memory   Memory   `yaml:"memory"`
	Executor Executor `yaml:"executor"`
	Pipeline Pipeline `yaml:"pipeline"`
	Notify   Notify   `yaml:"notify"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// NATS holds NATS JetStream configuration.
type NATS struct {
	URL string `yaml:"url"`
}

// Reviewer holds advisory reviewer (LLM proxy) configuration.
// When disabled, plans run unreviewed.
type Reviewer struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Breaker holds circuit breaker configuration for reviewer calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Memory holds aggregate-store configuration.
type Memory struct {
	RecentPayloads   int           `yaml:"recent_payloads"`
	ConsolidateAfter time.Duration `yaml:"consolidate_after"`
	ConsolidateEvery time.Duration `yaml:"consolidate_every"`
}

// Executor holds action execution configuration.
type Executor struct {
	DedupTTL    time.Duration `yaml:"dedup_ttl"`
	CacheSizeMB int64         `yaml:"cache_size_mb"`
}

// Pipeline holds event processing configuration.
type Pipeline struct {
	MaxInFlight   int64 `yaml:"max_in_flight"`
	RecordHistory int   `yaml:"record_history"`
}

// Notify holds notifier adapter configuration.
type Notify struct {
	Providers []string `yaml:"providers"` // e.g. ["console", "discord"]
	Discord   Discord  `yaml:"discord"`
}

// Discord holds Discord webhook configuration.
type Discord struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Reviewer: Reviewer{
			Enabled: false,
			URL:     "http://localhost:4000",
			Model:   "openai/gpt-4o-mini",
			Timeout: 10 * time.Second,
		},
		Logging: Logging{
			Level:   "info",
			Service: "flowpulse",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Memory: Memory{
			RecentPayloads:   100,
			ConsolidateAfter: 24 * time.Hour,
			ConsolidateEvery: time.Hour,
		},
		Executor: Executor{
			DedupTTL:    10 * time.Minute,
			CacheSizeMB: 32,
		},
		Pipeline: Pipeline{
			MaxInFlight:   16,
			RecordHistory: 256,
		},
		Notify: Notify{
			Providers: []string{"console"},
		},
	}
}
