package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Remote    RemoteConfig
	Lock      LockConfig
	Sync      SyncConfig
	AI        AIConfig
	RefData   RefDataConfig
	Debounce  time.Duration
}

// DatabaseConfig holds local-tier database configuration.
// Host=localhost with no password selects the embedded instance, which
// keeps its cluster under EmbeddedPath and listens on EmbeddedPort.
type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	Alter        bool
	EmbeddedPath string
	EmbeddedPort int
}

// RemoteConfig holds durable-store connection configuration
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LockConfig holds edit-session lock tuning
type LockConfig struct {
	Staleness time.Duration // Heartbeat age after which a lock is reclaimable
	Heartbeat time.Duration // Renewal interval while editing
}

// SyncConfig holds outbox/replay tuning
type SyncConfig struct {
	Enabled        bool
	HealthInterval time.Duration // Remote reachability poll interval
	DrainInterval  time.Duration // Periodic drain while online
}

// AIConfig holds refinement collaborator configuration
type AIConfig struct {
	GeminiAPIKey string
	Model        string
	Timeout      time.Duration
}

// RefDataConfig holds the XML-RPC endpoint of the PM backend that owns
// projects and contractors.
type RefDataConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "4520"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:         getEnv("PG_HOST", "localhost"),
			Port:         getEnv("PG_PORT", "5432"),
			Username:     getEnv("PG_USERNAME", "postgres"),
			Password:     os.Getenv("PG_PASSWORD"),
			Database:     getEnv("PG_DATABASE", "sitereport"),
			Alter:        getEnv("DB_ALTER", "false") == "true",
			EmbeddedPath: getEnv("PG_EMBEDDED_PATH", ".sitereport/db"),
			EmbeddedPort: intEnv("PG_EMBEDDED_PORT", 5433),
		},
		Remote: RemoteConfig{
			BaseURL: os.Getenv("REMOTE_STORE_URL"),
			Timeout: secondsEnv("REMOTE_TIMEOUT_SECONDS", 15),
		},
		Lock: LockConfig{
			Staleness: secondsEnv("LOCK_STALENESS_SECONDS", 90),
			Heartbeat: secondsEnv("LOCK_HEARTBEAT_SECONDS", 20),
		},
		Sync: SyncConfig{
			Enabled:        getEnv("SYNC_ENABLED", "true") == "true",
			HealthInterval: secondsEnv("SYNC_HEALTH_INTERVAL_SECONDS", 30),
			DrainInterval:  secondsEnv("SYNC_DRAIN_INTERVAL_SECONDS", 120),
		},
		AI: AIConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			Model:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      secondsEnv("AI_TIMEOUT_SECONDS", 45),
		},
		RefData: RefDataConfig{
			URL:      os.Getenv("REFDATA_URL"),
			Database: os.Getenv("REFDATA_DATABASE"),
			Username: os.Getenv("REFDATA_USERNAME"),
			Password: os.Getenv("REFDATA_PASSWORD"),
		},
		Debounce: millisEnv("PERSIST_DEBOUNCE_MS", 500),
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func secondsEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}

func intEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func millisEnv(key string, defaultMillis int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return time.Duration(defaultMillis) * time.Millisecond
}
