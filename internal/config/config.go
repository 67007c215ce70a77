// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Provider holds settings for the hosted identity provider.
	Provider ProviderConfig

	// Auth holds browser session and token refresh settings.
	Auth AuthConfig

	// Events holds auth event log settings.
	Events EventsConfig

	// Cart holds shopping cart settings.
	Cart CartConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently. If DATABASE_URL
// is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "tradewind").
	User string

	// Password is the MariaDB password (default: "tradewind").
	Password string

	// Name is the database name (default: "tradewind").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
// Allows users to set DB_HOST=mydb (gets :3306) or DB_HOST=mydb:3307 (as-is).
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// ProviderConfig holds settings for the hosted identity provider that backs
// all sign-in, sign-up, and password reset flows.
type ProviderConfig struct {
	// BaseURL is the root URL of the provider's auth API.
	BaseURL string

	// APIKey is the project API key sent with every provider request.
	APIKey string

	// Timeout bounds each individual HTTP request to the provider.
	Timeout time.Duration

	// RetryAttempts is the total number of attempts for a provider call,
	// including the first (default: 3).
	RetryAttempts int

	// RetryBaseDelay is the base wait used for linear backoff between
	// attempts (default: 1s).
	RetryBaseDelay time.Duration
}

// AuthConfig holds browser session and token refresh settings.
type AuthConfig struct {
	// SecretKey encrypts provider sessions at rest (must be 32+ chars).
	SecretKey string

	// SessionTTL is how long browser sessions last before expiring.
	SessionTTL time.Duration

	// PersistSession selects the durable Redis session store. When false,
	// sessions live in process memory and vanish on restart.
	PersistSession bool

	// AutoRefreshToken enables transparent refresh of provider tokens
	// nearing expiry.
	AutoRefreshToken bool

	// RefreshLeeway is how close to token expiry a refresh is attempted.
	RefreshLeeway time.Duration

	// DetectSessionInURL enables adopting provider tokens delivered on the
	// /auth/callback redirect (email confirmation, OAuth flows).
	DetectSessionInURL bool
}

// EventsConfig holds auth event log settings.
type EventsConfig struct {
	// Retention is how long recorded auth events are kept before the
	// nightly purge removes them.
	Retention time.Duration
}

// CartConfig holds shopping cart settings.
type CartConfig struct {
	// TTL is how long an idle cart survives in Redis.
	TTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// In development a .env file is loaded first if present. Returns an error if
// required variables are missing.
func Load() (*Config, error) {
	// Load .env before reading anything else so local overrides apply.
	// Outside development the environment is expected to be injected by
	// the orchestrator, never a file on disk.
	if isDevEnv(getEnv("ENV", "development")) {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "tradewind"),
			Password:        getEnv("DB_PASSWORD", "tradewind"),
			Name:            getEnv("DB_NAME", "tradewind"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Provider: ProviderConfig{
			BaseURL:        getEnv("AUTH_PROVIDER_URL", "http://localhost:9999/auth/v1"),
			APIKey:         getEnv("AUTH_PROVIDER_KEY", ""),
			Timeout:        getEnvDuration("AUTH_PROVIDER_TIMEOUT", 10*time.Second),
			RetryAttempts:  getEnvInt("AUTH_RETRY_ATTEMPTS", 3),
			RetryBaseDelay: getEnvDuration("AUTH_RETRY_BASE_DELAY", time.Second),
		},

		Auth: AuthConfig{
			SecretKey:          getEnv("SECRET_KEY", ""),
			SessionTTL:         getEnvDuration("SESSION_TTL", 720*time.Hour),
			PersistSession:     getEnvBool("AUTH_PERSIST_SESSION", true),
			AutoRefreshToken:   getEnvBool("AUTH_AUTO_REFRESH", true),
			RefreshLeeway:      getEnvDuration("AUTH_REFRESH_LEEWAY", 5*time.Minute),
			DetectSessionInURL: getEnvBool("AUTH_DETECT_SESSION_IN_URL", true),
		},

		Events: EventsConfig{
			Retention: getEnvDuration("AUTH_EVENT_RETENTION", 90*24*time.Hour),
		},

		Cart: CartConfig{
			TTL: getEnvDuration("CART_TTL", 168*time.Hour),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.SecretKey == "" {
			return nil, fmt.Errorf("SECRET_KEY is required in production")
		}
		if len(cfg.Auth.SecretKey) < 32 {
			return nil, fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
		}
		if cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("AUTH_PROVIDER_KEY is required in production")
		}
	}

	// Provide a dev-only default secret so local dev works without .env.
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "dev-secret-key-do-not-use-in-production!!"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return isDevEnv(c.Env)
}

func isDevEnv(env string) bool {
	env = strings.ToLower(env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", "false", ...) or returns
// the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "720h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
