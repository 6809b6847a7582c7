// Package config provides configuration management for the label search gateway.
// It loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOLIBaseURL is the public OLI API used when no base URL is configured
const DefaultOLIBaseURL = "https://api.openlabelsinitiative.org"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	OLI       OLIConfig
	Cache     CacheConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Host           string
	AllowedOrigins []string // CORS origins, empty allows any
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	SSLMode        string // libpq sslmode, "disable" when empty
	MaxConnections int
}

// URL returns the connection URL shared by the pool and the migration tool.
// Credentials are escaped.
func (c PostgresConfig) URL() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Secure   bool // TLS, required by ClickHouse Cloud
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled        bool
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// OLIConfig holds settings for the upstream Open Labels API
type OLIConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
	BudgetPerSecond   int // backend requests per second shared by all replicas through Redis, 0 disables
	BudgetReserved    int // part of BudgetPerSecond kept for interactive lookups
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// SearchConfig holds limits applied to search requests
type SearchConfig struct {
	DefaultTagLimit     int           // limit for tag searches when none is given
	DefaultAddressLimit int           // limit for address lookups when none is given
	MaxLimit            int           // upper bound for every limit parameter
	RecordEvents        bool          // write search events to ClickHouse
	EventFlushInterval  time.Duration // how often buffered events are written
	EventBatchSize      int
}

// RateLimitConfig holds rate limiting configuration for inbound requests
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig reads an optional .env file, then the environment. Unparsable
// values are reported together rather than replaced by defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	env := &envReader{}
	config := &Config{
		Server: ServerConfig{
			Port: env.str("8080", "SERVER_PORT", "PORT"),
			Host: env.str("0.0.0.0", "SERVER_HOST"),
			// empty allows any origin
			AllowedOrigins: env.list("CORS_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Enabled:        env.boolean("POSTGRES_ENABLED", true),
				Host:           env.str("localhost", "POSTGRES_HOST"),
				Port:           env.str("5432", "POSTGRES_PORT"),
				Database:       env.str("oli_search", "POSTGRES_DB"),
				User:           env.str("oli", "POSTGRES_USER"),
				Password:       env.str("", "POSTGRES_PASSWORD"),
				SSLMode:        env.str("disable", "POSTGRES_SSLMODE"),
				MaxConnections: env.integer("POSTGRES_MAX_CONNECTIONS", 4),
			},
			ClickHouse: ClickHouseConfig{
				Enabled:  env.boolean("CLICKHOUSE_ENABLED", true),
				Host:     env.str("localhost", "CLICKHOUSE_HOST"),
				Port:     env.str("9000", "CLICKHOUSE_PORT"),
				Database: env.str("oli_search", "CLICKHOUSE_DB"),
				User:     env.str("default", "CLICKHOUSE_USER"),
				Password: env.str("", "CLICKHOUSE_PASSWORD"),
				Secure:   env.boolean("CLICKHOUSE_SECURE", false),
			},
			Redis: RedisConfig{
				Enabled:        env.boolean("REDIS_ENABLED", true),
				Host:           env.str("localhost", "REDIS_HOST"),
				Port:           env.str("6379", "REDIS_PORT"),
				Password:       env.str("", "REDIS_PASSWORD"),
				DB:             env.integer("REDIS_DB", 0),
				MaxConnections: env.integer("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		OLI: OLIConfig{
			BaseURL:           env.str(DefaultOLIBaseURL, "OLI_API_BASE_URL", "NEXT_PUBLIC_OLI_API_BASE_URL"),
			APIKey:            env.str("", "OLI_API_KEY", "NEXT_PUBLIC_OLI_API_KEY"),
			Timeout:           env.duration("OLI_TIMEOUT", 60*time.Second),
			RequestsPerSecond: env.float("OLI_REQUESTS_PER_SECOND", 10),
			MaxAttempts:       env.integer("OLI_MAX_ATTEMPTS", 3),
			BudgetPerSecond:   env.integer("OLI_BUDGET_PER_SECOND", 0),
			BudgetReserved:    env.integer("OLI_BUDGET_RESERVED", 0),
		},
		Cache: CacheConfig{
			TTL: env.duration("CACHE_TTL", 30*time.Second),
		},
		Search: SearchConfig{
			DefaultTagLimit:     env.integer("SEARCH_DEFAULT_TAG_LIMIT", 100),
			DefaultAddressLimit: env.integer("SEARCH_DEFAULT_ADDRESS_LIMIT", 10),
			MaxLimit:            env.integer("SEARCH_MAX_LIMIT", 100),
			RecordEvents:        env.boolean("STORE_SEARCH_EVENTS", true),
			EventFlushInterval:  env.duration("SEARCH_EVENT_FLUSH_INTERVAL", 5*time.Second),
			EventBatchSize:      env.integer("SEARCH_EVENT_BATCH_SIZE", 500),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: env.integer("RATE_LIMIT_RPS", 20),
			Burst:             env.integer("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  env.str("info", "LOG_LEVEL"),
			Format: env.str("json", "LOG_FORMAT"),
		},
	}

	if err := env.err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that would make the server misbehave
func (c *Config) Validate() error {
	var problems []error

	base, err := url.Parse(c.OLI.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		problems = append(problems, fmt.Errorf("OLI_API_BASE_URL must be an http(s) URL, got %q", c.OLI.BaseURL))
	}
	if c.OLI.MaxAttempts < 1 {
		problems = append(problems, fmt.Errorf("OLI_MAX_ATTEMPTS must be positive, got %d", c.OLI.MaxAttempts))
	}
	if c.OLI.BudgetPerSecond < 0 || c.OLI.BudgetReserved < 0 || c.OLI.BudgetReserved > c.OLI.BudgetPerSecond {
		problems = append(problems, fmt.Errorf("OLI_BUDGET_RESERVED (%d) must be between 0 and OLI_BUDGET_PER_SECOND (%d)",
			c.OLI.BudgetReserved, c.OLI.BudgetPerSecond))
	}
	if c.Search.MaxLimit < 1 {
		problems = append(problems, fmt.Errorf("SEARCH_MAX_LIMIT must be positive, got %d", c.Search.MaxLimit))
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		problems = append(problems, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST cannot be negative"))
	}
	switch strings.ToLower(c.Database.Postgres.SSLMode) {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		problems = append(problems, fmt.Errorf("POSTGRES_SSLMODE %q is not a libpq sslmode", c.Database.Postgres.SSLMode))
	}

	return errors.Join(problems...)
}
