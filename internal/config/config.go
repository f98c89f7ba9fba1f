package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const DefaultAPIBaseURL = "http://localhost:5207"

type Config struct {
	APIBaseURL         string
	UsersBaseURL       string
	BindAddress        string
	UnixSocketPath     string
	RequireBearerToken bool
	BearerToken        string
	RequestTimeout     time.Duration
	RefreshCron        string
	SurfacesFile       string
	LogLevel           string
	EnableTray         bool
}

// Load reads the SEB_* environment. Values from a .env file in the working
// directory fill in variables that are not already set.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	apiBase := getenvDefault("SEB_API_BASE_URL", DefaultAPIBaseURL)
	cfg := Config{
		APIBaseURL:         apiBase,
		UsersBaseURL:       getenvDefault("SEB_USERS_BASE_URL", apiBase),
		BindAddress:        getenvDefault("SEB_BIND_ADDRESS", "127.0.0.1:9843"),
		UnixSocketPath:     strings.TrimSpace(os.Getenv("SEB_UNIX_SOCKET")),
		RequireBearerToken: getenvBool("SEB_REQUIRE_TOKEN", true),
		BearerToken:        strings.TrimSpace(os.Getenv("SEB_BEARER_TOKEN")),
		RequestTimeout:     getenvDuration("SEB_REQUEST_TIMEOUT", 10*time.Second),
		RefreshCron:        strings.TrimSpace(os.Getenv("SEB_REFRESH_CRON")),
		SurfacesFile:       strings.TrimSpace(os.Getenv("SEB_SURFACES_FILE")),
		LogLevel:           getenvDefault("SEB_LOG_LEVEL", "info"),
		EnableTray:         getenvBool("SEB_ENABLE_TRAY", false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for name, raw := range map[string]string{"SEB_API_BASE_URL": c.APIBaseURL, "SEB_USERS_BASE_URL": c.UsersBaseURL} {
		if err := validateBaseURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.BindAddress == "" && c.UnixSocketPath == "" {
		return errors.New("either bind address or unix socket path must be configured")
	}
	if c.RequireBearerToken && c.BearerToken == "" {
		return errors.New("SEB_BEARER_TOKEN is required when token auth is enabled")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be > 0")
	}
	if c.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("invalid SEB_REFRESH_CRON %q: %w", c.RefreshCron, err)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("base url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("base url has no host")
	}
	return nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
