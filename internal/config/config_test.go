package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"SEB_API_BASE_URL", "SEB_USERS_BASE_URL", "SEB_BIND_ADDRESS", "SEB_UNIX_SOCKET",
	"SEB_REQUIRE_TOKEN", "SEB_BEARER_TOKEN", "SEB_REQUEST_TIMEOUT", "SEB_REFRESH_CRON",
	"SEB_SURFACES_FILE", "SEB_LOG_LEVEL", "SEB_ENABLE_TRAY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func validConfig() Config {
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		UsersBaseURL:   DefaultAPIBaseURL,
		BindAddress:    "127.0.0.1:1",
		RequestTimeout: time.Second,
		LogLevel:       "info",
	}
}

func TestLoadSuccess(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEB_API_BASE_URL", "https://events.example.test")
	t.Setenv("SEB_BIND_ADDRESS", "127.0.0.1:9999")
	t.Setenv("SEB_REQUIRE_TOKEN", "true")
	t.Setenv("SEB_BEARER_TOKEN", "secret")
	t.Setenv("SEB_REQUEST_TIMEOUT", "5s")
	t.Setenv("SEB_REFRESH_CRON", "*/5 * * * *")
	t.Setenv("SEB_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout)
	}
	if cfg.UsersBaseURL != "https://events.example.test" {
		t.Fatalf("users base url should follow the api base url, got %q", cfg.UsersBaseURL)
	}
	if cfg.RefreshCron != "*/5 * * * *" {
		t.Fatalf("unexpected cron: %q", cfg.RefreshCron)
	}
}

func TestValidateErrors(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.APIBaseURL = "" },
		func(c *Config) { c.UsersBaseURL = "ftp://x" },
		func(c *Config) { c.APIBaseURL = "http://" },
		func(c *Config) { c.BindAddress = "" },
		func(c *Config) { c.RequireBearerToken = true },
		func(c *Config) { c.RequestTimeout = -1 * time.Second },
		func(c *Config) { c.RefreshCron = "every minute" },
		func(c *Config) { c.LogLevel = "trace" },
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("baseline config invalid: %v", err)
	}
	for i, m := range mutate {
		c := validConfig()
		m(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, c)
		}
	}
}

func TestDefaultsWhenEnvInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEB_BEARER_TOKEN", "secret")
	t.Setenv("SEB_REQUEST_TIMEOUT", "oops")
	t.Setenv("SEB_REQUIRE_TOKEN", "oops")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.RequestTimeout)
	}
	if !cfg.RequireBearerToken {
		t.Fatalf("expected default true for RequireBearerToken")
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL || cfg.BindAddress != "127.0.0.1:9843" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SEB_BEARER_TOKEN=from-file\nSEB_LOG_LEVEL=warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SEB_LOG_LEVEL", "error")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BearerToken != "from-file" {
		t.Fatalf("token not read from .env: %q", cfg.BearerToken)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf(".env must not override the environment, got %q", cfg.LogLevel)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
