// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Storage  StorageConfig
	AI       AIConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite file
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev             bool
	Migrations      bool
	RefreshInterval time.Duration
	NotificationTTL time.Duration
	HistoryDepth    int
	// ReportFont is a TTF file with Arabic glyphs used for PDF reports.
	ReportFont string
}

// StorageConfig locates the object storage.
type StorageConfig struct {
	Dir          string
	MaxImageSide int
}

// AIConfig configures the generative AI client.
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	CookieName string
	Secure     bool
}

// DSN returns the driver specific connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "sqlite":
		return d.Path
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
		)
	}
}

// URL returns the PostgreSQL connection string in URL format (used by golang-migrate).
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	driver := strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	defaultPort := 5432
	if driver == "mysql" {
		defaultPort = 3306
	}
	port := getEnv("PORT", "8080")
	return &Config{
		Server: ServerConfig{
			Port:         port,
			BaseURL:      getEnv("BASE_URL", "http://localhost:"+port),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", defaultPort),
			User:     getEnv("DB_USER", "workshop"),
			Password: getEnv("DB_PASSWORD", "workshop123"),
			DBName:   getEnv("DB_NAME", "workshop"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "workshop.db"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:             getEnvBool("DEV", true),
			Migrations:      getEnvBool("MIGRATIONS", false),
			RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 10*time.Second),
			NotificationTTL: getEnvDuration("NOTIFICATION_TTL", 5*time.Second),
			HistoryDepth:    getEnvInt("HISTORY_DEPTH", 20),
			ReportFont:      getEnv("REPORT_FONT", ""),
		},
		Storage: StorageConfig{
			Dir:          getEnv("STORAGE_DIR", "data/storage"),
			MaxImageSide: getEnvInt("STORAGE_MAX_IMAGE_SIDE", 1600),
		},
		AI: AIConfig{
			APIKey:  getEnv("AI_API_KEY", ""),
			Model:   getEnv("AI_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Timeout: getEnvDuration("AI_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Secret:     getEnv("AUTH_SECRET", "dev-secret-change-me"),
			SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
			CookieName: getEnv("SESSION_COOKIE", "session"),
			Secure:     getEnvBool("COOKIE_SECURE", false),
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
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration parses a Go duration ("10s") or a plain number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if i, err := strconv.Atoi(value); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}
