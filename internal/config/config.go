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

var (
	validBackends     = []string{"memory", "sqlite", "mysql"}
	validCaches       = []string{"lru", "redis", "none"}
	validSeedPolicies = []string{"replace", "skip-if-populated", "append"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Record store
	DataBackend  string
	SQLiteDBPath string
	MySQLDSN     string
	StoreTimeout time.Duration

	// Seeding
	SeedURL     string
	SeedFile    string
	SeedPolicy  string
	SeedStrict  bool
	SeedTimeout time.Duration

	// Report cache
	ReportCache     string
	ReportCacheSize int
	ReportCacheTTL  time.Duration
	RedisAddr       string

	// AMQP, optional: empty URL disables dataset events
	AMQPURL      string
	AMQPExchange string

	// Rate limiting
	InitializeRatePerMinute int

	// Comma separated; "*" allows any origin
	CORSAllowedOrigins string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "5000"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/txdash.db"),
		MySQLDSN:     getEnv("MYSQL_DSN", ""),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 7*time.Second),

		SeedURL:     getEnv("SEED_URL", "https://s3.amazonaws.com/roxiler.com/product_transaction.json"),
		SeedFile:    getEnv("SEED_FILE", ""),
		SeedPolicy:  strings.ToLower(getEnv("SEED_POLICY", "replace")),
		SeedStrict:  getEnvBool("SEED_STRICT", false),
		SeedTimeout: getEnvDuration("SEED_TIMEOUT", 30*time.Second),

		ReportCache:     getEnv("REPORT_CACHE", "lru"),
		ReportCacheSize: getEnvInt("REPORT_CACHE_SIZE", 256),
		ReportCacheTTL:  getEnvDuration("REPORT_CACHE_TTL", 5*time.Minute),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "txdash.events"),

		InitializeRatePerMinute: getEnvInt("INITIALIZE_RATE_PER_MINUTE", 6),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "mysql":
		if c.MySQLDSN == "" {
			errors = append(errors, "MYSQL_DSN is required when using mysql backend")
		}
	}

	if c.StoreTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid store timeout %v: must be at least 100ms", c.StoreTimeout))
	}

	// Seeding
	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("seed file '%s' is not readable: %v", c.SeedFile, err))
		}
	} else if parsedURL, err := url.Parse(c.SeedURL); err != nil || c.SeedURL == "" {
		errors = append(errors, fmt.Sprintf("invalid seed URL '%s'", c.SeedURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid seed URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if !slices.Contains(validSeedPolicies, c.SeedPolicy) {
		errors = append(errors, fmt.Sprintf("invalid seed policy '%s': must be one of %v", c.SeedPolicy, validSeedPolicies))
	}

	if c.SeedTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid seed timeout %v: must be at least 1 second", c.SeedTimeout))
	}

	// Report cache
	if !slices.Contains(validCaches, c.ReportCache) {
		errors = append(errors, fmt.Sprintf("invalid report cache '%s': must be one of %v", c.ReportCache, validCaches))
	}
	if c.ReportCache != "none" && c.ReportCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid report cache TTL %v: must be positive", c.ReportCacheTTL))
	}
	if c.ReportCache == "lru" && c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.ReportCache == "redis" && c.RedisAddr == "" {
		errors = append(errors, "REDIS_ADDR is required when using redis report cache")
	}

	// AMQP
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

	if c.InitializeRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid initialize rate %d: must be at least 1 per minute", c.InitializeRatePerMinute))
	}

	if strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		errors = append(errors, "CORS allowed origins cannot be empty: use '*' to allow any origin")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether dataset events should be published and consumed.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
