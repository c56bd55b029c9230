// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package config loads and validates RecService configuration using
// Koanf v2 with layered sources: built-in defaults, an optional YAML
// config file, and environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Recommend RecommendConfig `koanf:"recommend"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Import    ImportConfig    `koanf:"import"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file path.
	Path string `koanf:"path"`

	// MaxMemory limits DuckDB memory usage (e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count; 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// NATSConfig holds message transport settings for activity ingestion.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	// StreamName is the JetStream stream holding news events.
	StreamName string `koanf:"stream_name"`

	// Subject is the subject the ingest worker consumes.
	Subject string `koanf:"subject"`

	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`

	// MaxDeliver bounds redeliveries of a nacked message (transport-side limit).
	MaxDeliver int           `koanf:"max_deliver"`
	AckWait    time.Duration `koanf:"ack_wait"`

	// ConnectAttempts and ConnectBackoff bound the startup wait for the
	// transport before the worker declares fatal failure.
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectBackoff  time.Duration `koanf:"connect_backoff"`

	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// WindowDays is the activity lookback window for profile computation.
	WindowDays int `koanf:"window_days"`

	// DefaultCount is the number of recommendations when the caller
	// doesn't specify one.
	DefaultCount int `koanf:"default_count"`

	// MaxCount caps the per-request recommendation count.
	MaxCount int `koanf:"max_count"`

	// DefaultThreshold is the minimum similarity score when the caller
	// doesn't specify one.
	DefaultThreshold float64 `koanf:"default_threshold"`
}

// EmbeddingConfig holds settings for the external embedding service.
type EmbeddingConfig struct {
	// URL is the embedding HTTP service endpoint. Empty disables the
	// encoder (vectors are then attached by an external batch job only).
	URL string `koanf:"url"`

	// Dimensions is the fixed vector length produced by the model.
	Dimensions int `koanf:"dimensions"`

	Timeout time.Duration `koanf:"timeout"`
}

// ImportConfig holds catalog import settings.
type ImportConfig struct {
	// DatasetPath is a JSON-lines news dataset file.
	DatasetPath string `koanf:"dataset_path"`

	BatchSize int `koanf:"batch_size"`

	// GenerateEmbeddings backfills vectors during import when an
	// embedding service is configured.
	GenerateEmbeddings bool `koanf:"generate_embeddings"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Recommend.WindowDays <= 0 {
		return fmt.Errorf("recommend.window_days must be positive, got %d", c.Recommend.WindowDays)
	}
	if c.Recommend.DefaultCount <= 0 {
		return fmt.Errorf("recommend.default_count must be positive, got %d", c.Recommend.DefaultCount)
	}
	if c.Recommend.MaxCount < c.Recommend.DefaultCount {
		return fmt.Errorf("recommend.max_count (%d) must be >= recommend.default_count (%d)",
			c.Recommend.MaxCount, c.Recommend.DefaultCount)
	}
	if c.Recommend.DefaultThreshold < 0 || c.Recommend.DefaultThreshold > 1 {
		return fmt.Errorf("recommend.default_threshold must be in [0,1], got %f", c.Recommend.DefaultThreshold)
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required when nats.enabled is true")
		}
		if c.NATS.Subject == "" {
			return fmt.Errorf("nats.subject is required when nats.enabled is true")
		}
		if c.NATS.ConnectAttempts <= 0 {
			return fmt.Errorf("nats.connect_attempts must be positive, got %d", c.NATS.ConnectAttempts)
		}
	}
	if c.Embedding.URL != "" && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}
