// Package config loads settings from the environment (and .env files) and
// the band progression from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	SpreadsheetID   string `env:"SPREADSHEET_ID"`
	CredentialsPath string `env:"GOOGLE_APPLICATION_CREDENTIALS" envDefault:"credentials.json"`
	BandsFile       string `env:"BANDS_FILE"`
	ReferenceTZ     string `env:"REFERENCE_TZ" envDefault:"Local"`

	Port    string        `env:"PORT" envDefault:"8080"`
	Logging LoggingConfig `envPrefix:"LOG_"`
	Auth    AuthConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `env:"LEVEL" envDefault:"info"`
	// Format: text or json
	Format string `env:"FORMAT" envDefault:"text"`
}

// AuthConfig holds the single admin account guarding the HTTP API.
type AuthConfig struct {
	AdminUser string        `env:"ADMIN_USER"`
	AdminPass string        `env:"ADMIN_PASS"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Configured reports whether login is possible.
func (a AuthConfig) Configured() bool {
	return a.AdminUser != "" && a.AdminPass != "" && a.JWTSecret != ""
}

// LoadEnv loads whichever of envFiles exist. Missing files are not an error.
func LoadEnv(envFiles ...string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads .env files, then parses and validates the environment.
func Load(envFiles ...string) (*Config, error) {
	if _, err := LoadEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.ReferenceTZ); err != nil {
		errs = append(errs, fmt.Errorf("REFERENCE_TZ: %w", err))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Logging.Format))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL))
	}
	return errors.Join(errs...)
}

// Location returns the reference time zone used to compute ages.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTZ)
	if err != nil {
		return time.Local
	}
	return loc
}

// Clock returns "now" in the reference time zone.
func (c *Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time { return time.Now().In(loc) }
}
