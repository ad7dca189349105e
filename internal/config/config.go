// Package config provides centralized configuration management for the
// HOBO parse service and CLI. Settings come from environment variables with
// defaults and are validated on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Parse    ParseConfig
	QC       QCConfig
	Storage  StorageConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables persistence:
	// files can still be parsed and exported but not stored.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// ParseConfig holds logger export parsing settings.
type ParseConfig struct {
	// MaxFileSize is the maximum accepted export size in bytes (default: 50MB)
	MaxFileSize int64 `env:"PARSE_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel parses (default: 4)
	MaxConcurrent int `env:"PARSE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"PARSE_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single parse including storage (default: 5m)
	Timeout time.Duration `env:"PARSE_TIMEOUT" default:"5m"`

	// MaxHeaderLines caps the metadata prefix scan, 0 for unbounded
	MaxHeaderLines int `env:"PARSE_MAX_HEADER_LINES" default:"0"`

	// StrictFields rejects header fields that cannot be decomposed
	StrictFields bool `env:"PARSE_STRICT_FIELDS" default:"false"`

	// DayFirst reads ambiguous dates as dd/mm/yy
	DayFirst bool `env:"PARSE_DAY_FIRST" default:"false"`

	// Encoding of uploaded files: utf-8, windows-1252 or utf-16
	Encoding string `env:"PARSE_ENCODING" default:"utf-8"`

	// Timezone applies when the timestamp header names no GMT offset
	Timezone string `env:"PARSE_TIMEZONE" default:"UTC"`
}

// QCConfig holds quality control settings.
type QCConfig struct {
	// EnabledByDefault runs QC when a request does not say otherwise
	EnabledByDefault bool `env:"QC_ENABLED_DEFAULT" default:"false"`

	FlatWindow     int     `env:"QC_FLAT_WINDOW" default:"3"`
	SpikeWindow    int     `env:"QC_SPIKE_WINDOW" default:"0"`
	SpikeThreshold float64 `env:"QC_SPIKE_THRESHOLD" default:"3"`

	// Ranges are "min:max"; empty disables the range test for that channel
	RangeTemperature      string `env:"QC_RANGE_TEMPERATURE" default:"-40:85"`
	RangePressure         string `env:"QC_RANGE_PRESSURE" default:"0:400"`
	RangeRelativeHumidity string `env:"QC_RANGE_RELATIVE_HUMIDITY" default:"0:100"`
	RangeBattery          string `env:"QC_RANGE_BATTERY" default:"0:5"`
}

// StorageConfig holds S3-compatible object storage settings for s3:// inputs.
type StorageConfig struct {
	Endpoint        string `env:"S3_ENDPOINT"`
	Region          string `env:"S3_REGION" default:"us-east-1"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" default:"true"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
