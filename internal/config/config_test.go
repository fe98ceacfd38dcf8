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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "localhost", cfg.RelyingParty.ID)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.True(t, cfg.Metrics.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  host: 0.0.0.0
  port: 9443
  read_timeout: 15s
  tls:
    enabled: true
    cert_file: /etc/passkey/tls.crt
    key_file: /etc/passkey/tls.key
logging:
  level: debug
  format: json
relying_party:
  id: example.com
  display_name: Example Corp
  origins:
    - https://example.com
  challenge_ttl: 300s
  user_verification: required
cache:
  addr: redis.internal:6379
  key_prefix: "pk:"
storage:
  backend: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Std())
	assert.True(t, cfg.Server.TLS.Enabled)
	assert.Equal(t, "/etc/passkey/tls.crt", cfg.Server.TLS.CertFile)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, "example.com", cfg.RelyingParty.ID)
	assert.Equal(t, "Example Corp", cfg.RelyingParty.DisplayName)
	assert.Equal(t, []string{"https://example.com"}, cfg.RelyingParty.Origins)
	assert.Equal(t, 300*time.Second, cfg.RelyingParty.ChallengeTTL.Std())
	assert.Equal(t, "required", cfg.RelyingParty.UserVerification)

	assert.Equal(t, "redis.internal:6379", cfg.Cache.Addr)
	assert.Equal(t, "pk:", cfg.Cache.KeyPrefix)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadDurationAsSeconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
relying_party:
  id: example.com
  display_name: Example Corp
  origins:
    - https://example.com
  challenge_ttl: 120
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.RelyingParty.ChallengeTTL.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PASSKEY_HOST", "0.0.0.0")
	t.Setenv("PASSKEY_PORT", "9090")
	t.Setenv("PASSKEY_LOG_LEVEL", "debug")
	t.Setenv("PASSKEY_REDIS_ADDR", "cache.internal:6379")
	t.Setenv("PASSKEY_DB_PATH", "/var/lib/passkey/passkey.db")
	t.Setenv("PASSKEY_TOKEN_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Addr)
	assert.Equal(t, "/var/lib/passkey/passkey.db", cfg.Storage.Path)
	assert.True(t, cfg.Token.Enabled)
	assert.Equal(t, "test-secret", cfg.Token.Secret)
}

func TestEnvOverridesInvalidPort(t *testing.T) {
	t.Setenv("PASSKEY_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "logfmt" },
			wantErr: "invalid log format",
		},
		{
			name:    "tls without cert",
			mutate:  func(c *Config) { c.Server.TLS.Enabled = true },
			wantErr: "cert_file",
		},
		{
			name: "tls without key",
			mutate: func(c *Config) {
				c.Server.TLS.Enabled = true
				c.Server.TLS.CertFile = "/etc/passkey/tls.crt"
			},
			wantErr: "key_file",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "postgres" },
			wantErr: "invalid storage backend",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Storage.Backend = "sqlite"
				c.Storage.Path = ""
			},
			wantErr: "storage path is required",
		},
		{
			name:    "tokens without secret",
			mutate:  func(c *Config) { c.Token.Enabled = true },
			wantErr: "token secret is required",
		},
		{
			name:    "relying party without id",
			mutate:  func(c *Config) { c.RelyingParty.ID = "" },
			wantErr: "relying_party",
		},
		{
			name:    "relying party without origins",
			mutate:  func(c *Config) { c.RelyingParty.Origins = nil },
			wantErr: "relying_party",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
