package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("KB_ID", "KB123")
	t.Setenv("MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0")
	t.Setenv("SESSION_TABLE_NAME", "SlackBotSessionTable")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.SessionBackend != SessionBackendDynamoDB {
		t.Fatalf("expected dynamodb session backend, got %q", cfg.SessionBackend)
	}
	if cfg.DedupBackend != DedupBackendMemory {
		t.Fatalf("expected memory dedup backend, got %q", cfg.DedupBackend)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.DedupTTL != 10*time.Minute {
		t.Fatalf("expected 10m dedup ttl, got %v", cfg.DedupTTL)
	}
	if cfg.FallbackMessage == "" {
		t.Fatalf("expected default fallback message")
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	for _, missing := range []string{"SLACK_BOT_TOKEN", "KB_ID", "MODEL_ID", "SESSION_TABLE_NAME"} {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")

			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error when %s is empty", missing)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			SessionBackend: SessionBackendDynamoDB,
			DedupBackend:   DedupBackendMemory,
			SessionTTL:     24 * time.Hour,
			DedupTTL:       time.Minute,
		}
	}

	t.Run("valid defaults", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("postgres without database url", func(t *testing.T) {
		cfg := base()
		cfg.SessionBackend = SessionBackendPostgres
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
			t.Fatalf("expected DATABASE_URL error, got %v", err)
		}
	})

	t.Run("redis backends without address", func(t *testing.T) {
		cfg := base()
		cfg.SessionBackend = SessionBackendRedis
		cfg.DedupBackend = DedupBackendRedis
		err := cfg.Validate()
		if err == nil || strings.Count(err.Error(), "REDIS_ADDR") != 2 {
			t.Fatalf("expected two REDIS_ADDR errors, got %v", err)
		}
	})

	t.Run("dynamodb dedup without table", func(t *testing.T) {
		cfg := base()
		cfg.DedupBackend = DedupBackendDynamoDB
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for missing DEDUP_TABLE_NAME")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.SessionBackend = "sqlite"
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for unknown backend")
		}
	})

	t.Run("negative rate limit", func(t *testing.T) {
		cfg := base()
		cfg.RateLimitPerMinute = -1
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error for negative rate limit")
		}
	})
}
