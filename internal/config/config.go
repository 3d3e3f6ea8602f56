// ABOUTME: painlog configuration with backend selection and environment overrides.
// ABOUTME: Loads JSON from the XDG config dir, then .env, then PAINLOG_* variables.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/harperreed/painlog/internal/charm"
	"github.com/harperreed/painlog/internal/session"
	"github.com/harperreed/painlog/internal/storage"
)

// Backend names accepted by OpenStorage.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCharm    = "charm"
)

const defaultHTTPAddr = ":8080"

// Config stores painlog configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "postgres", or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is where SQLite keeps painlog.db.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/painlog.
	DataDir string `json:"data_dir,omitempty"`

	// PostgresDSN is required for the postgres backend.
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	HTTPAddr string `json:"http_addr,omitempty"`
	LogLevel string `json:"log_level,omitempty"`

	// JWTSecret signs session tokens. Sessions are disabled when empty.
	JWTSecret string `json:"jwt_secret,omitempty"`
	// SessionTTL is a Go duration string such as "720h".
	SessionTTL     string `json:"session_ttl,omitempty"`
	RequireSession bool   `json:"require_session,omitempty"`

	// TimeZone is an IANA name used to bucket entries into calendar days.
	TimeZone string `json:"time_zone,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetHTTPAddr returns the listen address, defaulting to :8080.
func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		return defaultHTTPAddr
	}
	return c.HTTPAddr
}

// GetSessionTTL parses SessionTTL, falling back to the session default.
func (c *Config) GetSessionTTL() (time.Duration, error) {
	if c.SessionTTL == "" {
		return session.DefaultTTL, nil
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("parse session_ttl: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	return d, nil
}

// Location resolves TimeZone, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// Sessions builds the token manager, or nil when no secret is configured.
func (c *Config) Sessions() (*session.Manager, error) {
	if c.JWTSecret == "" {
		if c.RequireSession {
			return nil, fmt.Errorf("require_session is set but jwt_secret is empty")
		}
		return nil, nil
	}
	ttl, err := c.GetSessionTTL()
	if err != nil {
		return nil, err
	}
	return session.NewManager(c.JWTSecret, ttl), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	switch backend := c.GetBackend(); backend {
	case BackendSQLite:
		return storage.Open(filepath.Join(c.GetDataDir(), storage.DBFileName))
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres backend needs postgres_dsn")
		}
		return storage.OpenPostgres(ctx, c.PostgresDSN)
	case BackendCharm:
		return charm.InitClient()
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "painlog", "config.json")
}

// Load reads config from disk, then applies .env and PAINLOG_* overrides.
func Load() (*Config, error) {
	cfg, err := loadFile(GetConfigPath())
	if err != nil {
		return nil, err
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	overrideString("PAINLOG_BACKEND", &cfg.Backend)
	overrideString("PAINLOG_DATA_DIR", &cfg.DataDir)
	overrideString("PAINLOG_POSTGRES_DSN", &cfg.PostgresDSN)
	overrideString("PAINLOG_HTTP_ADDR", &cfg.HTTPAddr)
	overrideString("PAINLOG_LOG_LEVEL", &cfg.LogLevel)
	overrideString("PAINLOG_JWT_SECRET", &cfg.JWTSecret)
	overrideString("PAINLOG_SESSION_TTL", &cfg.SessionTTL)
	overrideString("PAINLOG_TIME_ZONE", &cfg.TimeZone)
	return overrideBool("PAINLOG_REQUIRE_SESSION", &cfg.RequireSession)
}

func overrideString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideBool(key string, target *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parse %s bool: %w", key, err)
	}
	*target = b
	return nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
