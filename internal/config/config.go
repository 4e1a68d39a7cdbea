package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendSheets   = "sheets"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendPostgres, BackendSheets}

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	PostgresURL  string

	// Google Sheets backend
	GoogleSpreadsheetID   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	SheetsExpensesName    string
	SheetsIncomesName     string
	SheetsBudgetsName     string

	// AMQP, optional: record changes are announced only when AMQPURL is set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Narrative service
	NarrativeEndpoint string
	NarrativeAPIKey   string
	NarrativeModel    string
	NarrativeTimeout  time.Duration
	// NarrativeCacheSize of zero disables the response cache.
	NarrativeCacheSize int
	NarrativeCacheTTL  time.Duration

	// Report endpoints, requests per minute per client.
	ReportRateLimit int
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "5000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		PostgresURL:  getEnv("POSTGRES_URL", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		SheetsExpensesName:    getEnv("SHEETS_EXPENSES_NAME", "Expenses"),
		SheetsIncomesName:     getEnv("SHEETS_INCOMES_NAME", "Incomes"),
		SheetsBudgetsName:     getEnv("SHEETS_BUDGETS_NAME", "Budgets"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensetracker"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		NarrativeEndpoint: getEnv("NARRATIVE_ENDPOINT", "https://generativelanguage.googleapis.com/"),
		NarrativeAPIKey:   getEnv("NARRATIVE_API_KEY", ""),
		NarrativeModel:    getEnv("NARRATIVE_MODEL", "gemini-2.0-flash"),
		NarrativeTimeout:  getEnvDuration("NARRATIVE_TIMEOUT", 30*time.Second),

		NarrativeCacheSize: getEnvInt("NARRATIVE_CACHE_SIZE", 64),
		NarrativeCacheTTL:  getEnvDuration("NARRATIVE_CACHE_TTL", 10*time.Minute),

		ReportRateLimit: getEnvInt("REPORT_RATE_LIMIT", 30),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when using sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "service account credentials are required when using sheets backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if u, err := url.Parse(c.NarrativeEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid narrative endpoint '%s'", c.NarrativeEndpoint))
	}
	if c.NarrativeModel == "" {
		errors = append(errors, "narrative model cannot be empty")
	}
	if c.NarrativeTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid narrative timeout %v: must be at least 1 second", c.NarrativeTimeout))
	} else if c.NarrativeTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid narrative timeout %v: must be at most 5 minutes", c.NarrativeTimeout))
	}

	if c.NarrativeCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid narrative cache size %d: must not be negative", c.NarrativeCacheSize))
	} else if c.NarrativeCacheSize > 0 && c.NarrativeCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid narrative cache TTL %v: must be positive", c.NarrativeCacheTTL))
	}

	if c.ReportRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid report rate limit %d: must be at least 1", c.ReportRateLimit))
	}

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
