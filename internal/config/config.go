// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for folio.db and the price cache (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Cron schedules (robfig/cron syntax)
	SnapshotSchedule   string // EOD snapshot run
	BackupSchedule     string // offsite backup run
	PriceFlushSchedule string // price cache persistence

	// Valuation policy: whether known accounts without a strategy
	// classification count toward the OVERALL view. Explicit by design;
	// both behaviors are supported.
	IncludeUnclassifiedInOverall bool

	Backup BackupConfig
}

// BackupConfig holds offsite backup settings for an S3-compatible bucket
type BackupConfig struct {
	Enabled       bool
	Bucket        string
	Prefix        string
	Region        string
	Endpoint      string // custom endpoint for S3-compatible stores, empty for AWS
	AccessKeyID   string
	SecretKey     string
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	port, err := getEnvInt("FOLIO_PORT", 8000)
	if err != nil {
		return nil, err
	}

	retention, err := getEnvInt("FOLIO_BACKUP_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:                      absDataDir,
		Port:                         port,
		LogLevel:                     getEnv("FOLIO_LOG_LEVEL", "info"),
		DevMode:                      getEnvBool("FOLIO_DEV_MODE", false),
		SnapshotSchedule:             getEnv("FOLIO_SNAPSHOT_SCHEDULE", "0 30 15 * * *"),
		BackupSchedule:               getEnv("FOLIO_BACKUP_SCHEDULE", "0 0 2 * * *"),
		PriceFlushSchedule:           getEnv("FOLIO_PRICE_FLUSH_SCHEDULE", "@every 5m"),
		IncludeUnclassifiedInOverall: getEnvBool("INCLUDE_UNCLASSIFIED_IN_OVERALL", true),
		Backup: BackupConfig{
			Enabled:       getEnvBool("FOLIO_BACKUP_ENABLED", false),
			Bucket:        getEnv("FOLIO_BACKUP_BUCKET", ""),
			Prefix:        getEnv("FOLIO_BACKUP_PREFIX", "folio-backups"),
			Region:        getEnv("FOLIO_BACKUP_REGION", "auto"),
			Endpoint:      getEnv("FOLIO_BACKUP_ENDPOINT", ""),
			AccessKeyID:   getEnv("FOLIO_BACKUP_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("FOLIO_BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays: retention,
		},
	}

	if cfg.Backup.Enabled && cfg.Backup.Bucket == "" {
		return nil, fmt.Errorf("FOLIO_BACKUP_ENABLED is set but FOLIO_BACKUP_BUCKET is empty")
	}

	return cfg, nil
}

// DatabasePath returns the path of the folio database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// PriceCachePath returns the path of the persisted price cache
func (c *Config) PriceCachePath() string {
	return filepath.Join(c.DataDir, "prices.msgpack")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
