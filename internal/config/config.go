package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finclient/internal/core"
)

// Session store kinds accepted by SESSION_STORE.
const (
	SessionFile   = "file"
	SessionSQLite = "sqlite"
	SessionMemory = "memory"
)

type Config struct {
	// Backend API
	APIBaseURL string
	APITimeout time.Duration

	// Session persistence
	SessionStore  string
	SessionFile   string
	SessionDBPath string

	// Query cache
	CacheMaxEntries int

	// Dashboard
	DashboardPeriod       string
	DashboardPollInterval time.Duration
	Currency              string

	// AMQP (optional invalidation bus)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets chart export (optional)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	ExportInterval           time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080/api"),
		APITimeout: getEnvDuration("API_TIMEOUT", 30*time.Second),

		SessionStore:  getEnv("SESSION_STORE", SessionFile),
		SessionFile:   getEnv("SESSION_FILE", defaultPath("session.json")),
		SessionDBPath: getEnv("SESSION_DB_PATH", defaultPath("session.db")),

		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 256),

		DashboardPeriod:       getEnv("DASHBOARD_PERIOD", ""),
		DashboardPollInterval: getEnvDuration("DASHBOARD_POLL_INTERVAL", 0),
		Currency:              strings.ToUpper(getEnv("CURRENCY", core.DefaultCurrency)),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finclient.invalidations"),
		AMQPQueue:    getEnv("AMQP_QUEUE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Charts"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// defaultPath places local state under the user's config directory,
// falling back to ./data when there is none.
func defaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join("data", name)
	}
	return filepath.Join(dir, "finclient", name)
}

// SheetsEnabled reports whether chart export to Google Sheets is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API base URL
	if c.APIBaseURL == "" {
		errors = append(errors, "API base URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.APITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	} else if c.APITimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be at most 5 minutes", c.APITimeout))
	}

	// Validate session store
	validStores := []string{SessionFile, SessionSQLite, SessionMemory}
	isValidStore := false
	for _, store := range validStores {
		if c.SessionStore == store {
			isValidStore = true
			break
		}
	}
	if !isValidStore {
		errors = append(errors, fmt.Sprintf("invalid session store '%s': must be one of %v", c.SessionStore, validStores))
	}

	switch c.SessionStore {
	case SessionFile:
		if c.SessionFile == "" {
			errors = append(errors, "session file path cannot be empty when using file session store")
		}
	case SessionSQLite:
		if c.SessionDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite session store")
		}
	}

	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheMaxEntries))
	} else if c.CacheMaxEntries > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 100000", c.CacheMaxEntries))
	}

	if !core.ValidCurrency(c.Currency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a three-letter code", c.Currency))
	}

	// Zero disables polling and export; anything else must be sane.
	errors = append(errors, checkInterval("dashboard poll interval", c.DashboardPollInterval)...)
	errors = append(errors, checkInterval("export interval", c.ExportInterval)...)

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if export is enabled
	if c.ExportInterval > 0 && !c.SheetsEnabled() {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when EXPORT_INTERVAL is set")
	}
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func checkInterval(name string, d time.Duration) []string {
	switch {
	case d == 0:
		return nil
	case d < time.Second:
		return []string{fmt.Sprintf("invalid %s %v: must be at least 1 second", name, d)}
	case d > 24*time.Hour:
		return []string{fmt.Sprintf("invalid %s %v: must be at most 24 hours", name, d)}
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
