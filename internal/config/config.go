// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-passkey/pkg/logging"
	"github.com/jeremyhahn/go-passkey/pkg/registration"
)

// Duration is a time.Duration that unmarshals from YAML as either a Go
// duration string ("90s", "2m") or a bare integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds int64
	if err := node.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value")
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete server configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      logging.Config     `yaml:"logging"`
	RelyingParty RelyingPartyConfig `yaml:"relying_party"`
	Cache        CacheConfig        `yaml:"cache"`
	Storage      StorageConfig      `yaml:"storage"`
	Token        TokenConfig        `yaml:"token"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host         string          `yaml:"host"`
	Port         int             `yaml:"port"`
	ReadTimeout  Duration        `yaml:"read_timeout"`
	WriteTimeout Duration        `yaml:"write_timeout"`
	IdleTimeout  Duration        `yaml:"idle_timeout"`
	TLS          TLSConfig       `yaml:"tls"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles the ceremony endpoints per client IP.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// TLSConfig controls TLS settings for the HTTP listener
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RelyingPartyConfig carries the WebAuthn relying party settings and is
// converted to the ceremony configuration with ToRegistration.
type RelyingPartyConfig struct {
	ID                     string   `yaml:"id"`
	DisplayName            string   `yaml:"display_name"`
	Origins                []string `yaml:"origins"`
	Timeout                Duration `yaml:"timeout"`
	ChallengeTTL           Duration `yaml:"challenge_ttl"`
	UserVerification       string   `yaml:"user_verification"`
	AttestationPreference  string   `yaml:"attestation"`
	ResidentKeyRequirement string   `yaml:"resident_key"`
	Debug                  bool     `yaml:"debug"`
}

// ToRegistration converts to the ceremony package's configuration.
func (c RelyingPartyConfig) ToRegistration() *registration.Config {
	return &registration.Config{
		RPID:                   c.ID,
		RPDisplayName:          c.DisplayName,
		RPOrigins:              c.Origins,
		Timeout:                c.Timeout.Std(),
		ChallengeTTL:           c.ChallengeTTL.Std(),
		UserVerification:       c.UserVerification,
		AttestationPreference:  c.AttestationPreference,
		ResidentKeyRequirement: c.ResidentKeyRequirement,
		Debug:                  c.Debug,
	}
}

// CacheConfig controls the challenge store backend. Redis is probed at
// startup; an unreachable Redis degrades to the in-process store.
type CacheConfig struct {
	Addr      string   `yaml:"addr"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	OpTimeout Duration `yaml:"op_timeout"`
}

// StorageConfig controls the relational store
type StorageConfig struct {
	Backend string `yaml:"backend"` // sqlite, memory
	Path    string `yaml:"path"`    // database file for sqlite
}

// TokenConfig controls the post-ceremony identity token
type TokenConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Secret   string   `yaml:"secret"`
	Issuer   string   `yaml:"issuer"`
	Audience []string `yaml:"audience"`
	TTL      Duration `yaml:"ttl"`
}

// MetricsConfig controls the metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
			},
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		RelyingParty: RelyingPartyConfig{
			ID:          "localhost",
			DisplayName: "go-passkey",
			Origins:     []string{"http://localhost:8080"},
		},
		Cache: CacheConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "passkey:",
			OpTimeout: Duration(2 * time.Second),
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "passkey.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// variable overrides. Defaults fill anything the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PASSKEY_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid PASSKEY_PORT value %q, using default %d: %v",
				portStr, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEY_PORT value %q (out of range 1-65535), using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if addr := os.Getenv("PASSKEY_REDIS_ADDR"); addr != "" {
		cfg.Cache.Addr = addr
	}
	if password := os.Getenv("PASSKEY_REDIS_PASSWORD"); password != "" {
		cfg.Cache.Password = password
	}

	if path := os.Getenv("PASSKEY_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}

	// Token secrets belong in the environment, not the config file.
	if secret := os.Getenv("PASSKEY_TOKEN_SECRET"); secret != "" {
		cfg.Token.Enabled = true
		cfg.Token.Secret = secret
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage backend: %s (must be sqlite or memory)", c.Storage.Backend)
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("rate limit requests_per_minute must be positive when enabled")
	}

	if c.Token.Enabled && c.Token.Secret == "" {
		return fmt.Errorf("token secret is required when tokens are enabled")
	}

	rp := c.RelyingParty.ToRegistration()
	rp.SetDefaults()
	if err := rp.Validate(); err != nil {
		return fmt.Errorf("relying_party: %w", err)
	}

	return nil
}
