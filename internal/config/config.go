// Package config provides environment configuration for the assistant.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCSVURL is the published component catalog.
const DefaultCSVURL = "https://raw.githubusercontent.com/TheBugurtov/Figma-components-to-Google-Sheets/main/components.csv"

// ErrMissingBotToken is returned by Validate when BOT_TOKEN is unset.
var ErrMissingBotToken = errors.New("BOT_TOKEN is required")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Telegram
	BotToken            string
	WebhookURL          string
	WebhookSecret       string
	TelegramSendRate    float64
	TelegramPollTimeout time.Duration

	// Catalog
	CSVURL              string
	CatalogTTL          time.Duration
	CatalogFetchTimeout time.Duration
	MobileFiles         []string
	IconFiles           []string

	// Admission rate limiting
	RateLimitRequests      int
	RateLimitWindow        time.Duration
	RateLimitSweepInterval time.Duration

	// HTTP API rate limiting
	HTTPRateLimitRequests int
	HTTPRateLimitWindow   time.Duration

	// Audit log
	AuditSpreadsheetID    string
	AuditSheetName        string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
	AuditBufferSize       int
	AuditFlushInterval    time.Duration
	AuditWriteRate        float64

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Conversation and delivery
	ResultBatchSize   int
	MessageChunkSize  int
	MessageChunkDelay time.Duration
	DispatchQueueSize int

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),

		// Telegram
		BotToken:            getEnv("BOT_TOKEN", ""),
		WebhookURL:          getEnv("TELEGRAM_WEBHOOK_URL", ""),
		WebhookSecret:       getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramSendRate:    getFloatEnv("TELEGRAM_SEND_RATE", 25),
		TelegramPollTimeout: getDurationEnv("TELEGRAM_POLL_TIMEOUT", 60*time.Second),

		// Catalog
		CSVURL:              getEnv("CSV_URL", DefaultCSVURL),
		CatalogTTL:          getDurationEnv("CATALOG_TTL", 5*time.Minute),
		CatalogFetchTimeout: getDurationEnv("CATALOG_FETCH_TIMEOUT", 15*time.Second),
		MobileFiles:         getListEnv("CATALOG_MOBILE_FILES", []string{"App Components"}),
		IconFiles:           getListEnv("CATALOG_ICON_FILES", []string{"Icons", "Logos", "Placeholders"}),

		// Admission rate limiting
		RateLimitRequests:      getIntEnv("RATE_LIMIT_REQUESTS", 5),
		RateLimitWindow:        getDurationEnv("RATE_LIMIT_WINDOW", 10*time.Second),
		RateLimitSweepInterval: getDurationEnv("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),

		// HTTP API rate limiting
		HTTPRateLimitRequests: getIntEnv("HTTP_RATE_LIMIT_REQUESTS", 60),
		HTTPRateLimitWindow:   getDurationEnv("HTTP_RATE_LIMIT_WINDOW", time.Minute),

		// Audit log
		AuditSpreadsheetID:    getEnv("AUDIT_SPREADSHEET_ID", ""),
		AuditSheetName:        getEnv("AUDIT_SHEET_NAME", "Logs"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		AuditBufferSize:       getIntEnv("AUDIT_BUFFER_SIZE", 20),
		AuditFlushInterval:    getDurationEnv("AUDIT_FLUSH_INTERVAL", 5*time.Minute),
		AuditWriteRate:        getFloatEnv("AUDIT_WRITE_RATE", 1),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Conversation and delivery
		ResultBatchSize:   getIntEnv("RESULT_BATCH_SIZE", 10),
		MessageChunkSize:  getIntEnv("MESSAGE_CHUNK_SIZE", 4000),
		MessageChunkDelay: getDurationEnv("MESSAGE_CHUNK_DELAY", 300*time.Millisecond),
		DispatchQueueSize: getIntEnv("DISPATCH_QUEUE_SIZE", 32),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks settings the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, ErrMissingBotToken)
	}
	if c.CSVURL == "" {
		errs = append(errs, errors.New("CSV_URL must not be empty"))
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	if c.ResultBatchSize <= 0 {
		errs = append(errs, errors.New("RESULT_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// WebhookMode reports whether updates arrive by webhook instead of polling.
func (c *Config) WebhookMode() bool {
	return c.WebhookURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv reads a comma-separated list.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
