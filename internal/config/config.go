// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Auth       AuthConfig       `koanf:"auth"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	LoginLimit LoginLimitConfig `koanf:"login_limit"`
	Lockout    LockoutConfig    `koanf:"lockout"`
	Quota      QuotaConfig      `koanf:"quota"`
	Embed      EmbedConfig      `koanf:"embed"`
	CORS       CORSConfig       `koanf:"cors"`
	OAuth      OAuthConfig      `koanf:"oauth"`
	Storage    StorageConfig    `koanf:"storage"`
	Mail       MailConfig       `koanf:"mail"`
	Log        LogConfig        `koanf:"log"`
	Otel       OtelConfig       `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	PublicURL   string `koanf:"public_url"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

// AuthConfig carries the token signing secret. An empty secret is not a
// load error: issuance and verification fail with a misconfiguration
// error at request time instead.
type AuthConfig struct {
	SigningSecret         string        `koanf:"signing_secret"`
	Issuer                string        `koanf:"issuer"`
	SessionTTL            time.Duration `koanf:"session_ttl"`
	APITokenDefaultExpiry string        `koanf:"api_token_default_expiry"`
	SessionCookieName     string        `koanf:"session_cookie_name"`
	CookieDomain          string        `koanf:"cookie_domain"`
	CookieSecure          bool          `koanf:"cookie_secure"`
	ResetTokenTTL         time.Duration `koanf:"reset_token_ttl"`
	SessionPurgeSchedule  string        `koanf:"session_purge_schedule"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type LoginLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type LockoutConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Duration    time.Duration `koanf:"duration"`
}

type QuotaConfig struct {
	DefaultLimit  int    `koanf:"default_limit"`
	ResetSchedule string `koanf:"reset_schedule"`
}

type EmbedConfig struct {
	CacheSize     int           `koanf:"cache_size"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	QuotesPerHour int           `koanf:"quotes_per_hour"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type OAuthConfig struct {
	Enabled         bool          `koanf:"enabled"`
	IssuerURL       string        `koanf:"issuer_url"`
	ClientID        string        `koanf:"client_id"`
	ClientSecret    string        `koanf:"client_secret"`
	RedirectURL     string        `koanf:"redirect_url"`
	Scopes          []string      `koanf:"scopes"`
	StateTTL        time.Duration `koanf:"state_ttl"`
	SuccessRedirect string        `koanf:"success_redirect"`
}

type StorageConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Endpoint        string `koanf:"endpoint"`
	Region          string `koanf:"region"`
	Bucket          string `koanf:"bucket"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	UsePathStyle    bool   `koanf:"use_path_style"`
	PublicBaseURL   string `koanf:"public_base_url"`
	MaxUploadBytes  int64  `koanf:"max_upload_bytes"`
}

type MailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Load layers defaults, the optional YAML file and mapped environment
// variables, in that order.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "Configurator API",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.public_url":  "http://localhost:3000",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       false,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"auth.issuer":                   "configurator-api",
		"auth.session_ttl":              "168h",
		"auth.api_token_default_expiry": "7d",
		"auth.session_cookie_name":      "session_token",
		"auth.cookie_secure":            true,
		"auth.reset_token_ttl":          "1h",
		"auth.session_purge_schedule":   "@hourly",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"login_limit.requests": 5,
		"login_limit.window":   "15m",

		"lockout.max_attempts": 5,
		"lockout.duration":     "15m",

		"quota.default_limit":  1000,
		"quota.reset_schedule": "0 0 1 * *",

		"embed.cache_size":      512,
		"embed.cache_ttl":       "5m",
		"embed.quotes_per_hour": 30,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Edit-Token",
			"X-Api-Token",
			"X-Api-Key",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"oauth.enabled":   false,
		"oauth.scopes":    []string{"openid", "email", "profile"},
		"oauth.state_ttl": "10m",

		"storage.enabled":          false,
		"storage.region":           "us-east-1",
		"storage.max_upload_bytes": 2 << 20,

		"mail.enabled": false,
		"mail.port":    587,
		"mail.from":    "no-reply@localhost",

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "configurator-api",
	}
}

func loadDefaults(k *koanf.Koanf) error {
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"PUBLIC_URL":                  "app.public_url",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_SECRET":                  "auth.signing_secret",
	"AUTH_SIGNING_SECRET":         "auth.signing_secret",
	"AUTH_SESSION_TTL":            "auth.session_ttl",
	"AUTH_COOKIE_DOMAIN":          "auth.cookie_domain",
	"AUTH_COOKIE_SECURE":          "auth.cookie_secure",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"LOGIN_LIMIT_REQUESTS":        "login_limit.requests",
	"LOGIN_LIMIT_WINDOW":          "login_limit.window",
	"LOCKOUT_MAX_ATTEMPTS":        "lockout.max_attempts",
	"LOCKOUT_DURATION":            "lockout.duration",
	"QUOTA_DEFAULT_LIMIT":         "quota.default_limit",
	"QUOTA_RESET_SCHEDULE":        "quota.reset_schedule",
	"SESSION_PURGE_SCHEDULE":      "auth.session_purge_schedule",
	"OAUTH_ENABLED":               "oauth.enabled",
	"OAUTH_ISSUER_URL":            "oauth.issuer_url",
	"OAUTH_CLIENT_ID":             "oauth.client_id",
	"OAUTH_CLIENT_SECRET":         "oauth.client_secret",
	"OAUTH_REDIRECT_URL":          "oauth.redirect_url",
	"OAUTH_SUCCESS_REDIRECT":      "oauth.success_redirect",
	"S3_ENABLED":                  "storage.enabled",
	"S3_ENDPOINT":                 "storage.endpoint",
	"S3_REGION":                   "storage.region",
	"S3_BUCKET":                   "storage.bucket",
	"S3_ACCESS_KEY_ID":            "storage.access_key_id",
	"S3_SECRET_ACCESS_KEY":        "storage.secret_access_key",
	"S3_PUBLIC_BASE_URL":          "storage.public_base_url",
	"SMTP_ENABLED":                "mail.enabled",
	"SMTP_HOST":                   "mail.host",
	"SMTP_PORT":                   "mail.port",
	"SMTP_USERNAME":               "mail.username",
	"SMTP_PASSWORD":               "mail.password",
	"SMTP_FROM":                   "mail.from",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}

	if c.Auth.SessionCookieName == "" {
		return fmt.Errorf("auth.session_cookie_name is required")
	}

	if c.LoginLimit.Requests <= 0 || c.LoginLimit.Window <= 0 {
		return fmt.Errorf("login_limit requests and window must be positive")
	}

	if c.Lockout.MaxAttempts <= 0 || c.Lockout.Duration <= 0 {
		return fmt.Errorf("lockout max_attempts and duration must be positive")
	}

	if c.Quota.ResetSchedule == "" {
		return fmt.Errorf("quota.reset_schedule is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.OAuth.Enabled {
		if c.OAuth.IssuerURL == "" || c.OAuth.ClientID == "" ||
			c.OAuth.RedirectURL == "" {
			return fmt.Errorf(
				"OAUTH_ISSUER_URL, OAUTH_CLIENT_ID and OAUTH_REDIRECT_URL are required when oauth is enabled",
			)
		}
	}

	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when storage is enabled")
	}

	if c.Mail.Enabled && c.Mail.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when mail is enabled")
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if !c.Auth.CookieSecure {
			return fmt.Errorf("AUTH_COOKIE_SECURE must be true in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

// Warnings lists non-fatal problems worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.Auth.SigningSecret == "" {
		warnings = append(warnings,
			"auth.signing_secret is empty: token issuance and verification will fail")
	} else if len(c.Auth.SigningSecret) < 32 {
		warnings = append(warnings,
			"auth.signing_secret is shorter than 32 bytes")
	}

	if !c.Mail.Enabled {
		warnings = append(warnings,
			"mail is disabled: password reset links are only logged")
	}

	return warnings
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
