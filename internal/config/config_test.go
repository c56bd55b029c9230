// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func loadInDir(t *testing.T, dir string) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restore wd: %v", err)
		}
	})
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadInDir(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8001 {
		t.Errorf("server.port = %d, want 8001", cfg.Server.Port)
	}
	if cfg.Recommend.WindowDays != 30 {
		t.Errorf("recommend.window_days = %d, want 30", cfg.Recommend.WindowDays)
	}
	if cfg.Recommend.DefaultCount != 10 {
		t.Errorf("recommend.default_count = %d, want 10", cfg.Recommend.DefaultCount)
	}
	if cfg.Recommend.DefaultThreshold != 0.3 {
		t.Errorf("recommend.default_threshold = %v, want 0.3", cfg.Recommend.DefaultThreshold)
	}
	if cfg.NATS.Subject != "news.events" {
		t.Errorf("nats.subject = %q, want news.events", cfg.NATS.Subject)
	}
	if cfg.NATS.MaxDeliver != 5 {
		t.Errorf("nats.max_deliver = %d, want 5", cfg.NATS.MaxDeliver)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: 9000\nrecommend:\n  default_count: 20\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadInDir(t, dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port = %d, want 9000 from file", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultCount != 20 {
		t.Errorf("recommend.default_count = %d, want 20 from file", cfg.Recommend.DefaultCount)
	}
	// Untouched keys keep their defaults.
	if cfg.Recommend.WindowDays != 30 {
		t.Errorf("recommend.window_days = %d, want default 30", cfg.Recommend.WindowDays)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: 9000\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := loadInDir(t, dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("server.port = %d, want 9100 from env", cfg.Server.Port)
	}
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("DUCKDB_PATH", "/tmp/legacy.duckdb")
	t.Setenv("QUEUE_NAME", "legacy.events")
	t.Setenv("SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("RECOMMENDATIONS_COUNT", "15")
	t.Setenv("ACTIVITY_WINDOW_DAYS", "14")

	cfg, err := loadInDir(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/legacy.duckdb" {
		t.Errorf("database.path = %q", cfg.Database.Path)
	}
	if cfg.NATS.Subject != "legacy.events" {
		t.Errorf("nats.subject = %q, want legacy.events", cfg.NATS.Subject)
	}
	if cfg.Recommend.DefaultThreshold != 0.5 {
		t.Errorf("recommend.default_threshold = %v, want 0.5", cfg.Recommend.DefaultThreshold)
	}
	if cfg.Recommend.DefaultCount != 15 {
		t.Errorf("recommend.default_count = %d, want 15", cfg.Recommend.DefaultCount)
	}
	if cfg.Recommend.WindowDays != 14 {
		t.Errorf("recommend.window_days = %d, want 14", cfg.Recommend.WindowDays)
	}
}

func TestLoadUnknownEnvIgnored(t *testing.T) {
	t.Setenv("SOME_RANDOM_VARIABLE", "should-not-leak")

	cfg, err := loadInDir(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("server.port = %d, unknown env must not disturb config", cfg.Server.Port)
	}
}

func TestLoadCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := loadInDir(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("cors_origins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Server.CORSOrigins[i] != want[i] {
			t.Errorf("cors_origins[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
		}
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero window", func(c *Config) { c.Recommend.WindowDays = 0 }},
		{"threshold above one", func(c *Config) { c.Recommend.DefaultThreshold = 1.5 }},
		{"max below default", func(c *Config) { c.Recommend.MaxCount = 5 }},
		{"nats enabled without url", func(c *Config) { c.NATS.URL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}
