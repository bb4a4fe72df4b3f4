// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database and backup staging (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// AI gateway settings. An empty URL disables AI augmentation entirely.
	AIGatewayURL string
	AIModel      string
	AIProvider   string
	AIMaxTokens  int
	AITimeout    time.Duration

	// Analysis cache TTL (default 1 hour)
	AnalysisCacheTTL time.Duration

	Backup *BackupConfig
}

// BackupConfig holds S3-compatible backup storage configuration.
// Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Endpoint        string // S3-compatible endpoint (empty = AWS)
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
	Schedule        string // cron spec for the nightly backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DEALSENTRY_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		AIGatewayURL:     getEnv("AI_GATEWAY_URL", ""),
		AIModel:          getEnv("AI_MODEL", "gpt-4o-mini"),
		AIProvider:       getEnv("AI_PROVIDER", "openai"),
		AIMaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 1024),
		AITimeout:        getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
		AnalysisCacheTTL: getEnvAsDuration("ANALYSIS_CACHE_TTL", time.Hour),
		Backup:           loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.AnalysisCacheTTL <= 0 {
		return fmt.Errorf("analysis cache TTL must be positive")
	}
	return nil
}

// loadBackupConfig loads backup configuration with sensible defaults
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:          getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
	}
}

// Enabled reports whether cloud backups are configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
