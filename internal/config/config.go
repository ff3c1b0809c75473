package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application settings
	Environment string `mapstructure:"APP_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	// Database configuration
	DBPath          string `mapstructure:"DB_PATH"`
	DBEncryptionKey string `mapstructure:"DB_ENCRYPTION_KEY"`

	// Application encryption
	AppEncryptionKey string `mapstructure:"APP_ENCRYPTION_KEY"`

	// Backup configuration
	BackupDir           string `mapstructure:"BACKUP_DIR"`
	BackupEncryptionKey string `mapstructure:"BACKUP_ENCRYPTION_KEY"`
	BackupSchedule      string `mapstructure:"BACKUP_SCHEDULE"`
	BackupRetentionDays int    `mapstructure:"BACKUP_RETENTION_DAYS"`

	// Audit configuration
	AuditLogPath   string `mapstructure:"AUDIT_LOG_PATH"`
	AuditAsyncMode bool   `mapstructure:"AUDIT_ASYNC_MODE"`

	// Rate limiting
	RateLimitRPS   int `mapstructure:"RATE_LIMIT_REQUESTS_PER_SECOND"`
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`

	// External capabilities
	OracleBaseURL        string `mapstructure:"ORACLE_BASE_URL"`
	OracleAPIKey         string `mapstructure:"ORACLE_API_KEY"`
	OracleTimeoutSeconds int    `mapstructure:"ORACLE_TIMEOUT_SECONDS"`
	GeoIPBaseURL         string `mapstructure:"GEOIP_BASE_URL"`

	// Messaging
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	SecurityEventsExchange string `mapstructure:"SECURITY_EVENTS_EXCHANGE"`

	// HTTP
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Scheduled jobs
	SessionSweepSchedule   string `mapstructure:"SESSION_SWEEP_SCHEDULE"`
	AuditMonitorSchedule   string `mapstructure:"AUDIT_MONITOR_SCHEDULE"`
	LimiterCleanupSchedule string `mapstructure:"LIMITER_CLEANUP_SCHEDULE"`
}

var defaults = map[string]any{
	"APP_ENV":                        "development",
	"LOG_LEVEL":                      "info",
	"LOG_FORMAT":                     "text",
	"HTTP_ADDR":                      ":8080",
	"DB_PATH":                        "./data/secure_bank.db",
	"DB_ENCRYPTION_KEY":              "",
	"APP_ENCRYPTION_KEY":             "",
	"BACKUP_DIR":                     "./backups",
	"BACKUP_ENCRYPTION_KEY":          "",
	"BACKUP_SCHEDULE":                "@every 24h",
	"BACKUP_RETENTION_DAYS":          30,
	"AUDIT_LOG_PATH":                 "./logs/audit.log",
	"AUDIT_ASYNC_MODE":               true,
	"RATE_LIMIT_REQUESTS_PER_SECOND": 10,
	"RATE_LIMIT_BURST":               20,
	"ORACLE_BASE_URL":                "http://localhost:3400",
	"ORACLE_API_KEY":                 "",
	"ORACLE_TIMEOUT_SECONDS":         20,
	"GEOIP_BASE_URL":                 "http://ip-api.com",
	"RABBITMQ_URL":                   "",
	"SECURITY_EVENTS_EXCHANGE":       "security_events",
	"CORS_ALLOWED_ORIGINS":           "http://localhost:3000",
	"SESSION_SWEEP_SCHEDULE":         "@every 30s",
	"AUDIT_MONITOR_SCHEDULE":         "@every 5m",
	"LIMITER_CLEANUP_SCHEDULE":       "@every 1h",
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// Load .env file if exists (not required in production)
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DBEncryptionKey == "" {
		return fmt.Errorf("DB_ENCRYPTION_KEY is required")
	}

	if len(c.DBEncryptionKey) < 32 {
		return fmt.Errorf("DB_ENCRYPTION_KEY must be at least 32 characters")
	}

	if c.AppEncryptionKey == "" {
		return fmt.Errorf("APP_ENCRYPTION_KEY is required")
	}

	if len(c.AppEncryptionKey) < 32 {
		return fmt.Errorf("APP_ENCRYPTION_KEY must be at least 32 characters")
	}

	if c.BackupEncryptionKey == "" {
		return fmt.Errorf("BACKUP_ENCRYPTION_KEY is required")
	}

	if c.OracleTimeoutSeconds <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SECONDS must be positive")
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// OracleTimeout is the per-call deadline applied to every oracle request.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSeconds) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
