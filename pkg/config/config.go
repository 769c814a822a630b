package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/x6galixia/server/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds credential store and session store configuration
type StorageConfig struct {
	// PostgreSQL (credential store)
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// Redis (session store)
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// AuthConfig holds authentication policy configuration
type AuthConfig struct {
	// BcryptCost is the bcrypt work factor for new password hashes
	BcryptCost int

	// MinPasswordLength is the registration password policy
	MinPasswordLength int

	// SessionTTL is the fixed session lifetime, measured from creation.
	// Expiry is fixed, not sliding: reads never extend it.
	SessionTTL time.Duration

	// CookieName is the session cookie name
	CookieName string

	// CookieSecure marks the session cookie Secure; disable only for
	// local plain-HTTP development
	CookieSecure bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("AUTHD_HOST", "0.0.0.0"),
		Port:            getEnv("AUTHD_PORT", "8080"),
		ReadTimeout:     getEnvDuration("AUTHD_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("AUTHD_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("AUTHD_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("AUTHD_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("AUTHD_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		PostgresURL:      getEnv("AUTHD_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("AUTHD_POSTGRES_MAX_CONNS", 25),
		PostgresMinConns: getEnvInt("AUTHD_POSTGRES_MIN_CONNS", 5),
		PostgresTimeout:  getEnvDuration("AUTHD_POSTGRES_TIMEOUT", 10*time.Second),
		RedisURL:         getEnv("AUTHD_REDIS_URL", "redis://localhost:6379"),
		RedisPassword:    getEnv("AUTHD_REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("AUTHD_REDIS_DB", 0),
		RedisPoolSize:    getEnvInt("AUTHD_REDIS_POOL_SIZE", 10),
	}
}

// loadAuthConfig loads authentication policy from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		BcryptCost:        getEnvInt("AUTHD_BCRYPT_COST", bcrypt.DefaultCost),
		MinPasswordLength: getEnvInt("AUTHD_MIN_PASSWORD_LENGTH", 8),
		SessionTTL:        getEnvDuration("AUTHD_SESSION_TTL", 24*time.Hour),
		CookieName:        getEnv("AUTHD_COOKIE_NAME", "authd_session"),
		CookieSecure:      getEnvBool("AUTHD_COOKIE_SECURE", true),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("AUTHD_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("AUTHD_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("minimum password length must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Auth.CookieName == "" {
		return fmt.Errorf("cookie name is required")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
