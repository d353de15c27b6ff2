package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the server configuration, read from the environment
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Mail       MailConfig // OTP delivery
	OTP        OTPConfig
	CORS       CORSConfig
	Security   SecurityConfig
	Upload     UploadConfig // payment proof screenshots
	Pricing    PricingConfig
	Membership MembershipConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// MailConfig holds SMTP configuration
type MailConfig struct {
	Mode     string // "dev" logs OTP codes, "production" sends mail
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// OTPConfig holds OTP-related configuration
type OTPConfig struct {
	ExpiryMinutes     int
	MaxAttempts       int
	RateLimit         int
	RateWindowMinutes int
	ResetTokenMinutes int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// UploadConfig holds screenshot storage configuration
type UploadConfig struct {
	Dir                string
	MaxScreenshotBytes int64
}

// PricingConfig holds per-person unit prices by booking type
type PricingConfig struct {
	Room     decimal.Decimal
	Table    decimal.Decimal
	Ticket   decimal.Decimal
	Currency string
}

// MembershipConfig holds plan amounts
type MembershipConfig struct {
	Monthly   decimal.Decimal
	Quarterly decimal.Decimal
	Yearly    decimal.Decimal
	Lifetime  decimal.Decimal
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := FromEnv()

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv builds a Config from the current environment without validating it
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 86400)) * time.Second,
		},
		Mail: MailConfig{
			Mode:     getEnv("MAIL_MODE", "dev"),
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "no-reply@vartikaresort.com"),
			FromName: getEnv("MAIL_FROM_NAME", "Vartika Funpark & Resort"),
		},
		OTP: OTPConfig{
			ExpiryMinutes:     getEnvAsInt("OTP_EXPIRY_MINUTES", 5),
			MaxAttempts:       getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
			RateLimit:         getEnvAsInt("OTP_RATE_LIMIT", 3),
			RateWindowMinutes: getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 10),
			ResetTokenMinutes: getEnvAsInt("RESET_TOKEN_EXPIRY_MINUTES", 15),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Upload: UploadConfig{
			Dir:                getEnv("UPLOAD_DIR", "uploads"),
			MaxScreenshotBytes: int64(getEnvAsInt("MAX_SCREENSHOT_BYTES", 5*1024*1024)),
		},
		Pricing: PricingConfig{
			Room:     getEnvAsDecimal("PRICE_ROOM", decimal.NewFromInt(5000)),
			Table:    getEnvAsDecimal("PRICE_TABLE", decimal.NewFromInt(1500)),
			Ticket:   getEnvAsDecimal("PRICE_TICKET", decimal.NewFromInt(800)),
			Currency: getEnv("PRICE_CURRENCY", "NPR"),
		},
		Membership: MembershipConfig{
			Monthly:   getEnvAsDecimal("MEMBERSHIP_MONTHLY", decimal.NewFromInt(2999)),
			Quarterly: getEnvAsDecimal("MEMBERSHIP_QUARTERLY", decimal.NewFromInt(7999)),
			Yearly:    getEnvAsDecimal("MEMBERSHIP_YEARLY", decimal.NewFromInt(24999)),
			Lifetime:  getEnvAsDecimal("MEMBERSHIP_LIFETIME", decimal.NewFromInt(99999)),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Upload.MaxScreenshotBytes <= 0 {
		return fmt.Errorf("MAX_SCREENSHOT_BYTES must be positive")
	}

	for name, price := range map[string]decimal.Decimal{
		"PRICE_ROOM":   c.Pricing.Room,
		"PRICE_TABLE":  c.Pricing.Table,
		"PRICE_TICKET": c.Pricing.Ticket,
	} {
		if !price.IsPositive() {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	// SMTP settings are only needed when mail is actually sent
	if c.Mail.Mode == "production" {
		if c.Mail.Host == "" {
			return fmt.Errorf("SMTP_HOST is required in production mail mode")
		}
		if c.Mail.From == "" {
			return fmt.Errorf("MAIL_FROM is required in production mail mode")
		}
	} else if c.Mail.Mode != "dev" {
		return fmt.Errorf("invalid MAIL_MODE: %s (must be 'dev' or 'production')", c.Mail.Mode)
	}

	return nil
}

// ClientConfig configures resortctl
type ClientConfig struct {
	APIURL      string
	SessionFile string
	Timeout     time.Duration
	LogLevel    string

	Pricing            PricingConfig
	Membership         MembershipConfig
	MaxScreenshotBytes int64
}

// LoadClient loads the CLI configuration. The price table and plan amounts
// use the same variables as the server so local checks agree with it.
func LoadClient() *ClientConfig {
	_ = godotenv.Load()

	server := FromEnv()
	sessionFile := getEnv("RESORT_SESSION_FILE", "")
	if sessionFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			sessionFile = filepath.Join(home, ".resortctl", "session.json")
		} else {
			sessionFile = ".resortctl-session.json"
		}
	}

	return &ClientConfig{
		APIURL:             strings.TrimRight(getEnv("RESORT_API_URL", "http://localhost:8080"), "/"),
		SessionFile:        sessionFile,
		Timeout:            time.Duration(getEnvAsInt("RESORT_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:           getEnv("RESORT_LOG_LEVEL", "warn"),
		Pricing:            server.Pricing,
		Membership:         server.Membership,
		MaxScreenshotBytes: server.Upload.MaxScreenshotBytes,
	}
}

// env reads key through parse, falling back to def when unset or malformed
func env[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	value, err := parse(raw)
	if err != nil {
		log.Printf("Ignoring %s=%q: %v; using %v", key, raw, err, def)
		return def
	}
	return value
}

func getEnv(key, def string) string {
	return env(key, def, func(s string) (string, error) { return s, nil })
}

func getEnvAsInt(key string, def int) int {
	return env(key, def, strconv.Atoi)
}

func getEnvAsBool(key string, def bool) bool {
	return env(key, def, strconv.ParseBool)
}

func getEnvAsDecimal(key string, def decimal.Decimal) decimal.Decimal {
	return env(key, def, decimal.NewFromString)
}

func getEnvAsSlice(key string, def []string) []string {
	return env(key, def, func(s string) ([]string, error) {
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		return items, nil
	})
}
