package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"goalbot/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "telegram:\n  token: \"123:abc\"\n")

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q, want 123:abc", cfg.Telegram.Token)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Telegram.PollTimeout != 60*time.Second {
		t.Errorf("poll timeout = %v, want 60s", cfg.Telegram.PollTimeout)
	}
	if cfg.Scheduler.DialogTTL != 30*time.Minute {
		t.Errorf("dialog TTL = %v, want 30m", cfg.Scheduler.DialogTTL)
	}
	if cfg.Messages.Cancelled != "Creation cancelled" {
		t.Errorf("cancelled message = %q, want the default text", cfg.Messages.Cancelled)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
telegram:
  token: "123:abc"
  poll_timeout: 30s
log:
  level: debug
scheduler:
  dialog_ttl: 10m
site:
  base_url: "https://goals.example.com"
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Telegram.PollTimeout != 30*time.Second {
		t.Errorf("poll timeout = %v, want 30s", cfg.Telegram.PollTimeout)
	}
	if cfg.Scheduler.DialogTTL != 10*time.Minute {
		t.Errorf("dialog TTL = %v, want 10m", cfg.Scheduler.DialogTTL)
	}
	if cfg.Site.BaseURL != "https://goals.example.com" {
		t.Errorf("base URL = %q, want the configured value", cfg.Site.BaseURL)
	}
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "456:def")

	path := filepath.Join(t.TempDir(), "absent.yaml")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Telegram.Token != "456:def" {
		t.Errorf("token = %q, want the env value", cfg.Telegram.Token)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing token",
			content: "log:\n  level: info\n",
		},
		{
			name:    "invalid log level",
			content: "telegram:\n  token: \"123:abc\"\nlog:\n  level: loud\n",
		},
		{
			name:    "poll timeout too short",
			content: "telegram:\n  token: \"123:abc\"\n  poll_timeout: 100ms\n",
		},
		{
			name:    "dialog ttl too short",
			content: "telegram:\n  token: \"123:abc\"\nscheduler:\n  dialog_ttl: 5s\n",
		},
		{
			name:    "base url not a url",
			content: "telegram:\n  token: \"123:abc\"\nsite:\n  base_url: \"not a url\"\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfigFile(t, tc.content)
			if _, err := config.LoadConfig(path); err == nil {
				t.Error("expected validation to reject the config")
			}
		})
	}
}
