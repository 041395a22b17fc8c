package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	DataDir      string
	SQLiteDBPath string
	StorageKey   string

	// Calendar
	Timezone string

	// Logging
	LogLevel string

	// Automation and sync timing
	AutomationInterval time.Duration
	SyncDebounce       time.Duration
	SyncTimeout        time.Duration

	// Advisory
	AdviceDebounce time.Duration
	AdviceCacheTTL time.Duration
	AdvisorURL     string
	AdvisorModel   string
	AdvisorAPIKey  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DataBackend:  getEnv("DATA_BACKEND", "file"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/nzql.db"),
		StorageKey:   getEnv("STORAGE_KEY", "nzql_finance_data_v2"),

		Timezone: getEnv("TIMEZONE", "Local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AutomationInterval: getEnvDuration("AUTOMATION_INTERVAL", time.Hour),
		SyncDebounce:       getEnvDuration("SYNC_DEBOUNCE", 5*time.Second),
		SyncTimeout:        getEnvDuration("SYNC_TIMEOUT", 15*time.Second),

		AdviceDebounce: getEnvDuration("ADVICE_DEBOUNCE", time.Second),
		AdviceCacheTTL: getEnvDuration("ADVICE_CACHE_TTL", 10*time.Minute),
		AdvisorURL:     getEnv("ADVISOR_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AdvisorModel:   getEnv("ADVISOR_MODEL", "gemini-2.0-flash"),
		AdvisorAPIKey:  getEnv("ADVISOR_API_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "nzql"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "nzql_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),
	}

	return cfg
}

// Location resolves Timezone. "Local" and "" mean the process location.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{"file", "sqlite", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.StorageKey == "" {
		errors = append(errors, "storage key cannot be empty")
	} else if strings.ContainsAny(c.StorageKey, `/\`) {
		errors = append(errors, fmt.Sprintf("invalid storage key '%s': must not contain path separators", c.StorageKey))
	}

	if c.DataBackend == "file" && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using file backend")
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.AutomationInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid automation interval %v: must be at least 1 minute", c.AutomationInterval))
	}
	if c.SyncDebounce < 0 {
		errors = append(errors, fmt.Sprintf("invalid sync debounce %v: must not be negative", c.SyncDebounce))
	}
	if c.SyncTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync timeout %v: must be at least 1 second", c.SyncTimeout))
	}
	if c.AdviceDebounce < 0 {
		errors = append(errors, fmt.Sprintf("invalid advice debounce %v: must not be negative", c.AdviceDebounce))
	}
	if c.AdviceCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid advice cache TTL %v: must be positive", c.AdviceCacheTTL))
	}

	if c.AdvisorURL != "" {
		if parsedURL, err := url.Parse(c.AdvisorURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid advisor URL '%s': %v", c.AdvisorURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid advisor URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}
	if c.AdvisorAPIKey != "" && c.AdvisorModel == "" {
		errors = append(errors, "advisor model cannot be empty when an advisor API key is provided")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
	}

	// Validate AMQP exchange and queue names if AMQP is configured
	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is provided")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
