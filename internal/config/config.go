// Package config loads service settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig optionally tees logs to a file.
type LogConfig struct {
	File string `yaml:"file"`
}

// AuthConfig controls operator tokens and the bootstrap account.
type AuthConfig struct {
	AdminUser       string        `yaml:"admin_user"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RateLimitPerSec: 20,
			RateLimitBurst:  40,
		},
		Database: DatabaseConfig{Path: "prostock.db"},
		Auth: AuthConfig{
			AdminUser:       "admin",
			TokenTTLMinutes: 12 * 60,
		},
	}
	cfg.applyDefaults()
	return cfg
}

// Load builds the configuration. A .env file in the working directory is
// read first when present; it never overrides variables already set. path
// may be empty, in which case only defaults and the environment apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PROSTOCK_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PROSTOCK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PROSTOCK_LOG"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("PROSTOCK_ADMIN_USER"); v != "" {
		c.Auth.AdminUser = v
	}
	if v := os.Getenv("PROSTOCK_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PROSTOCK_RATE_LIMIT: %w", err)
		}
		c.Server.RateLimitPerSec = rps
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 1
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 12 * 60
	}
	c.Auth.TokenTTL = time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}
