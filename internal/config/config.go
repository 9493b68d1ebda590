// Package config loads the server configuration from environment variables.
//
// Both upstream credentials are optional at startup: a missing Sheets or
// Gemini key disables that feature and is reported on the page, rather than
// stopping the process. Everything else is validated on load so a bad value
// fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Sheets   SheetsConfig
	Gemini   GeminiConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"150s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds a whole request, including upstream calls (default: 120s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"120s"`
}

// SheetsConfig holds Google Sheets API settings.
type SheetsConfig struct {
	// APIKey is the Sheets API key. Empty disables sheet loading.
	APIKey string `env:"GOOGLE_SHEETS_API_KEY" envAlt:"VITE_GOOGLE_SHEETS_API_KEY"`

	BaseURL string        `env:"SHEETS_BASE_URL" default:"https://sheets.googleapis.com"`
	Timeout time.Duration `env:"SHEETS_TIMEOUT" default:"30s"`
}

// GeminiConfig holds generative model settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Empty disables question answering.
	APIKey string `env:"GEMINI_API_KEY" envAlt:"VITE_GEMINI_API_KEY"`

	Model string `env:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	// MaxConcurrent caps in-flight model calls across all sessions (default: 4)
	MaxConcurrent int `env:"GEMINI_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a question waits for a free call slot (default: 10s)
	MaxWaitTime time.Duration `env:"GEMINI_MAX_WAIT_TIME" default:"10s"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// IdleTTL drops conversations with no activity for this long (default: 2h)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"2h"`

	// SweepInterval is how often idle conversations are dropped (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`

	CookieName   string `env:"SESSION_COOKIE_NAME" default:"sheetchat_session"`
	CookieSecure bool   `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ActionLimit is requests per minute for sheet loads and questions (default: 20)
	ActionLimit int `env:"RATE_LIMIT_ACTIONS" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the /api routes with an X-API-Key header
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds the optional activity log database settings.
type AuditConfig struct {
	// DatabaseURL is a PostgreSQL connection string. Empty disables the activity log.
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"5"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// RecentLimit is how many events /api/activity returns (default: 50)
	RecentLimit int `env:"AUDIT_RECENT_LIMIT" default:"50"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Enabled reports whether a Sheets API key is configured.
func (c *SheetsConfig) Enabled() bool { return c.APIKey != "" }

// Enabled reports whether a Gemini API key is configured.
func (c *GeminiConfig) Enabled() bool { return c.APIKey != "" }

// Enabled reports whether the activity log database is configured.
func (c *AuditConfig) Enabled() bool { return c.DatabaseURL != "" }
