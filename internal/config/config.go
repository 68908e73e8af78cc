package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Data source
	DataSourceURL     string
	DataSourceTimeout time.Duration
	StrictMonthNames  bool
	RefreshInterval   time.Duration // 0 disables scheduled reloads

	// Assistant
	AssistantURL       string
	AssistantTimeout   time.Duration
	AssistantRateLimit int
	AssistantRateBurst int

	// S3 Storage
	S3 S3Config
}

// S3Config holds AWS S3 configuration for the records object
type S3Config struct {
	Region          string
	Bucket          string
	RecordsKey      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Enabled reports whether the records should be read from S3
func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.RecordsKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173"), ","),
		Env:                getEnv("ENV", "development"),
		DataSourceURL:      getEnv("DATA_SOURCE_URL", ""),
		DataSourceTimeout:  getEnvDuration("DATA_SOURCE_TIMEOUT", 15*time.Second),
		StrictMonthNames:   getEnvBool("STRICT_MONTH_NAMES", false),
		RefreshInterval:    getEnvDuration("REFRESH_INTERVAL", 0),
		AssistantURL:       getEnv("ASSISTANT_URL", ""),
		AssistantTimeout:   getEnvDuration("ASSISTANT_TIMEOUT", 60*time.Second),
		AssistantRateLimit: getEnvInt("ASSISTANT_RATE_LIMIT", 20),
		AssistantRateBurst: getEnvInt("ASSISTANT_RATE_BURST", 5),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			RecordsKey:      getEnv("S3_RECORDS_KEY", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DataSourceURL == "" && !c.S3.Enabled() {
		return fmt.Errorf("DATA_SOURCE_URL or S3_BUCKET and S3_RECORDS_KEY are required")
	}
	if c.DataSourceTimeout <= 0 {
		return fmt.Errorf("DATA_SOURCE_TIMEOUT must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}
	if c.AssistantTimeout <= 0 {
		return fmt.Errorf("ASSISTANT_TIMEOUT must be positive")
	}
	if c.AssistantRateLimit <= 0 || c.AssistantRateBurst <= 0 {
		return fmt.Errorf("ASSISTANT_RATE_LIMIT and ASSISTANT_RATE_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
