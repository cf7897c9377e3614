// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Migration modes accepted by MIGRATIONS.
const (
	MigrationsSQL  = "sql"
	MigrationsAuto = "auto"
	MigrationsOff  = "off"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds connection settings for PostgreSQL or SQLite.
type DatabaseConfig struct {
	Type         string // postgres | sqlite
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite file
	RawDSN       string // DATABASE_DSN, overrides the individual fields
	MaxOpenConns int
	SlowQuery    time.Duration
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string // json | console
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev            bool
	Migrations     string
	SessionSecret  string
	DueInDays      int
	MaxRecurrences int
	CacheTTL       time.Duration
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return d.Path
	}
	if d.RawDSN != "" {
		return d.RawDSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IsSQLite reports whether the sqlite driver is selected.
func (d DatabaseConfig) IsSQLite() bool { return d.Type == "sqlite" }

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Type:         strings.ToLower(getEnv("DB_TYPE", "postgres")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "invoices"),
			Password:     getEnv("DB_PASSWORD", "invoices123"),
			DBName:       getEnv("DB_NAME", "invoices"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			Path:         getEnv("DB_PATH", "invoicebook.db"),
			RawDSN:       os.Getenv("DATABASE_DSN"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			SlowQuery:    time.Duration(getEnvInt("DB_SLOW_QUERY_MS", 200)) * time.Millisecond,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Dev:            getEnvBool("DEV", true),
			Migrations:     migrationMode(getEnv("MIGRATIONS", MigrationsSQL)),
			SessionSecret:  os.Getenv("SESSION_SECRET"),
			DueInDays:      getEnvInt("INVOICE_DUE_DAYS", 30),
			MaxRecurrences: getEnvInt("RECURRING_MAX_COUNT", 120),
			CacheTTL:       time.Duration(getEnvInt("INVOICE_CACHE_TTL_SECONDS", 30)) * time.Second,
		},
	}
}

// migrationMode maps legacy boolean values onto the named modes.
func migrationMode(v string) string {
	switch strings.ToLower(v) {
	case "1", "true", "yes", MigrationsSQL:
		return MigrationsSQL
	case MigrationsAuto:
		return MigrationsAuto
	default:
		return MigrationsOff
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
