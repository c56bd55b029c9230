// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

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
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/recservice/config.yaml",
	"/etc/recservice/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before file and
// environment overrides.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8001,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/recservice.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		NATS: NATSConfig{
			Enabled:         true,
			URL:             "nats://127.0.0.1:4222",
			EmbeddedServer:  false,
			StoreDir:        "/data/nats/jetstream",
			StreamName:      "NEWS_EVENTS",
			Subject:         "news.events",
			DurableName:     "rec-worker",
			QueueGroup:      "rec-workers",
			MaxDeliver:      5,
			AckWait:         30 * time.Second,
			ConnectAttempts: 30,
			ConnectBackoff:  5 * time.Second,
			CloseTimeout:    30 * time.Second,
		},
		Recommend: RecommendConfig{
			WindowDays:       30,
			DefaultCount:     10,
			MaxCount:         50,
			DefaultThreshold: 0.3,
		},
		Embedding: EmbeddingConfig{
			URL:        "",
			Dimensions: 384, // all-MiniLM-L6-v2
			Timeout:    30 * time.Second,
		},
		Import: ImportConfig{
			DatasetPath:        "",
			BatchSize:          500,
			GenerateEmbeddings: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration with layered sources (highest priority wins):
// environment variables > config file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
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

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Legacy names from earlier RecService deployments are kept working.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - QUEUE_NAME -> nats.subject
//   - SIMILARITY_THRESHOLD -> recommend.default_threshold
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// HTTP server
		"http_host":         "server.host",
		"http_port":         "server.port",
		"http_timeout":      "server.timeout",
		"cors_origins":      "server.cors_origins",
		"rate_limit_reqs":   "server.rate_limit_reqs",
		"rate_limit_window": "server.rate_limit_window",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// NATS transport (QUEUE_NAME is the legacy broker queue variable)
		"nats_enabled":          "nats.enabled",
		"nats_url":              "nats.url",
		"nats_embedded":         "nats.embedded_server",
		"nats_store_dir":        "nats.store_dir",
		"nats_stream_name":      "nats.stream_name",
		"queue_name":            "nats.subject",
		"nats_subject":          "nats.subject",
		"nats_durable_name":     "nats.durable_name",
		"nats_queue_group":      "nats.queue_group",
		"nats_max_deliver":      "nats.max_deliver",
		"nats_ack_wait":         "nats.ack_wait",
		"nats_connect_attempts": "nats.connect_attempts",
		"nats_connect_backoff":  "nats.connect_backoff",

		// Recommendation engine (legacy names kept for compatibility)
		"activity_window_days":  "recommend.window_days",
		"recommendations_count": "recommend.default_count",
		"recommendations_max":   "recommend.max_count",
		"similarity_threshold":  "recommend.default_threshold",

		// Embedding service
		"embedding_service_url": "embedding.url",
		"embedding_dimensions":  "embedding.dimensions",
		"embedding_timeout":     "embedding.timeout",

		// Import
		"import_dataset_path":       "import.dataset_path",
		"import_batch_size":         "import.batch_size",
		"import_generate_embedding": "import.generate_embeddings",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are dropped rather than guessed into config paths.
	return ""
}
