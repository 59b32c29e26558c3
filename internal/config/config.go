// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Development defaults that must be overridden outside development.
const (
	DefaultJWTSecret     = "dev-jwt-secret-change-me"
	DefaultAdminPassword = "admin123"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
	APIPrefix    string
	CORSOrigins  []string
}

// DatabaseConfig holds connection settings for the supported drivers.
type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	DSN      string // takes precedence over the discrete fields
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite file

	MaxOpenConns int
	MaxIdleConns int
	Debug        bool
	Tracing      bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env                  string
	Migrations           string // auto, sql or off
	Seed                 bool
	SeedCatalog          string
	BusinessName         string
	Currency             string
	PhoneRegion          string
	InvoiceNumberRetries int
	LogLevel             string
	LogFormat            string
}

// AuthConfig holds token and bootstrap account settings.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

// RedisConfig is optional; an empty URL disables the distributed lock.
type RedisConfig struct {
	URL string
}

// CheckSecrets rejects development credentials outside development.
// The admin password only matters when the admin account is seeded.
func (c *Config) CheckSecrets() error {
	if c.App.Dev() {
		return nil
	}
	var errs []error
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.App.Seed && c.Auth.AdminPassword == DefaultAdminPassword {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be changed from its default"))
	}
	return errors.Join(errs...)
}

// Dev reports whether internal error details may be returned to callers.
func (a AppConfig) Dev() bool {
	return a.Env == "development"
}

// ConnString returns the driver specific connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch d.Driver {
	case "postgres":
		return d.postgresDSN()
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	default:
		return d.Path
	}
}

// postgresDSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) postgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") {
		return d.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for a local single-user install.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3001"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			APIPrefix:    strings.TrimSuffix(getEnv("API_PREFIX", "/api/v1"), "/"),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:          strings.Trim(strings.TrimSpace(os.Getenv("DATABASE_DSN")), `"'`),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "paintms"),
			Password:     getEnv("DB_PASSWORD", "paintms"),
			DBName:       getEnv("DB_NAME", "paintms"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			Path:         getEnv("DB_PATH", "paintms.db"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			Debug:        getEnvBool("DB_DEBUG", false),
			Tracing:      getEnvBool("DB_TRACING", false),
		},
		App: AppConfig{
			Env:                  getEnv("APP_ENV", "production"),
			Migrations:           strings.ToLower(getEnv("MIGRATIONS", "auto")),
			Seed:                 getEnvBool("DB_SEED", true),
			SeedCatalog:          os.Getenv("SEED_CATALOG"),
			BusinessName:         getEnv("BUSINESS_NAME", "PAINT MS"),
			Currency:             getEnv("CURRENCY", "DZD"),
			PhoneRegion:          strings.ToUpper(getEnv("PHONE_REGION", "DZ")),
			InvoiceNumberRetries: getEnvInt("INVOICE_NUMBER_RETRIES", 5),
			LogLevel:             getEnv("LOG_LEVEL", "info"),
			LogFormat:            getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
			TokenTTL:      time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@paintms.com"),
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
