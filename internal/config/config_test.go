package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Set some test environment variables
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("POSTGRES_HOST", "testhost"); err != nil {
		t.Fatalf("Failed to set POSTGRES_HOST: %v", err)
	}
	if err := os.Setenv("CACHE_TTL", "30s"); err != nil {
		t.Fatalf("Failed to set CACHE_TTL: %v", err)
	}
	if err := os.Setenv("TRACKING_START_DATE", "2024-01-01"); err != nil {
		t.Fatalf("Failed to set TRACKING_START_DATE: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("POSTGRES_HOST")
		_ = os.Unsetenv("CACHE_TTL")
		_ = os.Unsetenv("TRACKING_START_DATE")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}

	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Cache.TTL = %v, want %v", cfg.Cache.TTL, 30*time.Second)
	}

	if cfg.Tracking.StartDate != "2024-01-01" {
		t.Errorf("Tracking.StartDate = %v, want %v", cfg.Tracking.StartDate, "2024-01-01")
	}
}

func TestLoadConfig_InvalidStartDate(t *testing.T) {
	if err := os.Setenv("TRACKING_START_DATE", "January 1st"); err != nil {
		t.Fatalf("Failed to set TRACKING_START_DATE: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("TRACKING_START_DATE")
	}()

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() expected error for malformed start date, got nil")
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when environment variable not set",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int64
		envValue     string
		want         int64
	}{
		{
			name:         "parses valid integer",
			key:          "TEST_INT64",
			defaultValue: 0,
			envValue:     "21000000",
			want:         21000000,
		},
		{
			name:         "falls back on invalid integer",
			key:          "TEST_INT64_BAD",
			defaultValue: 12,
			envValue:     "not-a-number",
			want:         12,
		},
		{
			name:         "falls back when unset",
			key:          "TEST_INT64_UNSET",
			defaultValue: 42,
			envValue:     "",
			want:         42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				if err := os.Setenv(tt.key, tt.envValue); err != nil {
					t.Fatalf("Failed to set env var: %v", err)
				}
				defer func() {
					_ = os.Unsetenv(tt.key)
				}()
			}

			got := getEnvAsInt64(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvAsInt64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	if err := os.Setenv("TEST_DURATION", "90s"); err != nil {
		t.Fatalf("Failed to set env var: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("TEST_DURATION")
	}()

	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want %v", got, 90*time.Second)
	}

	if got := getEnvAsDuration("TEST_DURATION_UNSET", 15*time.Second); got != 15*time.Second {
		t.Errorf("getEnvAsDuration() default = %v, want %v", got, 15*time.Second)
	}
}
