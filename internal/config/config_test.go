// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/configurator")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AUTH_SIGNING_SECRET", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "7d", cfg.Auth.APITokenDefaultExpiry)
	assert.Equal(t, "session_token", cfg.Auth.SessionCookieName)
	assert.Equal(t, 5, cfg.LoginLimit.Requests)
	assert.Equal(t, 15*time.Minute, cfg.LoginLimit.Window)
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.Duration)
	assert.Equal(t, "0 0 1 * *", cfg.Quota.ResetSchedule)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_SIGNING_SECRET", "from-env-0123456789abcdef0123456789")
	t.Setenv("JWT_SECRET", "from-env-0123456789abcdef0123456789")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
auth:
  signing_secret: from-file
  session_ttl: 24h
lockout:
  max_attempts: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env-0123456789abcdef0123456789", cfg.Auth.SigningSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 3, cfg.Lockout.MaxAttempts)
}

func TestMissingSigningSecretIsWarningNotError(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Auth.SigningSecret)
	assert.Contains(t, cfg.Warnings()[0], "signing_secret is empty")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.Database.URL = "postgres://x"
		c.Redis.URL = "redis://x"
		c.Auth.SessionTTL = time.Hour
		c.Auth.SessionCookieName = "session_token"
		c.Auth.CookieSecure = true
		c.LoginLimit = LoginLimitConfig{Requests: 5, Window: time.Minute}
		c.Lockout = LockoutConfig{MaxAttempts: 5, Duration: time.Minute}
		c.Quota.ResetSchedule = "0 0 1 * *"
		c.Server.ReadTimeout = time.Second
		c.Server.WriteTimeout = time.Second
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Database.URL = "" },
			wantErr: "DATABASE_URL",
		},
		{
			name: "wildcard cors with credentials",
			mutate: func(c *Config) {
				c.CORS.AllowCredentials = true
				c.CORS.AllowedOrigins = []string{"*"}
			},
			wantErr: "wildcard",
		},
		{
			name:    "oauth without client",
			mutate:  func(c *Config) { c.OAuth.Enabled = true },
			wantErr: "OAUTH_ISSUER_URL",
		},
		{
			name:    "storage without bucket",
			mutate:  func(c *Config) { c.Storage.Enabled = true },
			wantErr: "S3_BUCKET",
		},
		{
			name: "insecure cookie in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Auth.CookieSecure = false
			},
			wantErr: "AUTH_COOKIE_SECURE",
		},
		{
			name:    "missing reset schedule",
			mutate:  func(c *Config) { c.Quota.ResetSchedule = "" },
			wantErr: "quota.reset_schedule",
		},
		{
			name:    "zero login window",
			mutate:  func(c *Config) { c.LoginLimit.Window = 0 },
			wantErr: "login_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)

			err := validate(c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
