// Package config provides YAML-based configuration loading for marquee.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config is the top-level marquee configuration, loaded from marquee.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Recorder RecorderConfig `yaml:"recorder"`
	Digest   DigestConfig   `yaml:"digest"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AdminToken     string   `yaml:"admin_token"` // empty disables the admin bearer check
}

// DatabaseConfig selects the storage backend. DSN wins when set; otherwise a
// MySQL DSN is built from host/port/name/user the same way for every deploy.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// TelegramConfig controls the Bot API client used for inquiry delivery.
type TelegramConfig struct {
	APIBase    string `yaml:"api_base"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RecorderConfig points the access recorder's REST transport at a server.
type RecorderConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DigestConfig controls the scheduled operator digest.
type DigestConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Cron           string `yaml:"cron"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// Load reads a YAML config file from path, applies MARQUEE_* environment
// overrides, and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data, os.Getenv)
}

// Parse unmarshals YAML bytes into a validated Config. Environment overrides
// are not applied.
func Parse(data []byte) (*Config, error) {
	return parse(data, func(string) string { return "" })
}

func parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays secrets that should not live in the YAML file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MARQUEE_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("MARQUEE_ADMIN_TOKEN"); v != "" {
		c.Server.AdminToken = v
	}
	if v := getenv("MARQUEE_DIGEST_TOKEN"); v != "" {
		c.Digest.TelegramToken = v
	}
	if v := getenv("MARQUEE_DIGEST_CHAT_ID"); v != "" {
		c.Digest.TelegramChatID = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DSN == "" {
			c.Database.DSN = "marquee.db"
		}
	case DriverMySQL:
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = "https://api.telegram.org"
	}
	c.Telegram.APIBase = strings.TrimRight(c.Telegram.APIBase, "/")
	if c.Telegram.TimeoutSec <= 0 {
		c.Telegram.TimeoutSec = 10
	}
	if c.Recorder.TimeoutSec <= 0 {
		c.Recorder.TimeoutSec = 5
	}
	c.Recorder.BaseURL = strings.TrimRight(c.Recorder.BaseURL, "/")
	if c.Digest.Enabled && c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for postgres")
		}
	case DriverMySQL:
		if c.Database.DSN == "" && c.Database.Name == "" {
			errs = append(errs, "database.name or database.dsn is required for mysql")
		}
	case DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (postgres, mysql, sqlite)", c.Database.Driver))
	}
	if c.Digest.Enabled {
		if c.Digest.TelegramToken == "" {
			errs = append(errs, "digest.telegram_token is required when digest is enabled")
		}
		if c.Digest.TelegramChatID == "" {
			errs = append(errs, "digest.telegram_chat_id is required when digest is enabled")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
