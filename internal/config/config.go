package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 10 << 20

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Security  SecurityConfig
	CORS      CORSConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig

	// InMemory skips the database entirely.
	InMemory bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
	// ConnectTimeout bounds how long startup keeps retrying the first ping.
	ConnectTimeout time.Duration
	// PingTimeout bounds each individual ping attempt.
	PingTimeout time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
	// PublicBaseURL is the externally visible origin used to build upload URLs.
	PublicBaseURL string
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds secrets for tokens, webhooks and share links
type SecurityConfig struct {
	JWTSecret     string
	JWTIssuer     string
	WebhookSecret string
	ShareSecret   string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig holds upload settings
type StorageConfig struct {
	UploadDir      string
	MaxUploadBytes int64
	// CleanupInterval controls the staged-upload sweep. Zero disables it.
	CleanupInterval time.Duration
	CleanupMaxAge   time.Duration
}

// RateLimitConfig holds per-client request limits. RPS of zero disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from config/local.env, .env and the environment.
// Variables already set in the environment win over the files.
func Load(inMemory bool) (*Config, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load(".env")

	cfg := &Config{InMemory: inMemory}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	cfg.loadSecurity()
	cfg.loadCORS()
	if err := cfg.loadStorage(); err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	if err := cfg.loadRateLimit(); err != nil {
		return nil, fmt.Errorf("load rate limit config: %w", err)
	}
	cfg.loadLogging()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that never serve
// requests such as the migration runner.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load("config/local.env")
	_ = godotenv.Load(".env")

	var cfg Config
	if err := cfg.loadDatabase(); err != nil {
		return DatabaseConfig{}, fmt.Errorf("load database config: %w", err)
	}
	if cfg.Database.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required (or DB_USER, DB_NAME)")
	}
	return cfg.Database, nil
}

func (c *Config) loadDatabase() error {
	if err := c.loadDatabasePool(); err != nil {
		return err
	}

	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	if c.Database.User != "" && c.Database.Name != "" {
		c.Database.URL = fmt.Sprintf(
			"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
			c.Database.SSLMode,
		)
	}
	return nil
}

func (c *Config) loadDatabasePool() error {
	maxOpen, err := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "10"))
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	connectTimeout, err := time.ParseDuration(getEnvOrDefault("DB_CONNECT_TIMEOUT", "30s"))
	if err != nil {
		return fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %w", err)
	}
	pingTimeout, err := time.ParseDuration(getEnvOrDefault("DB_PING_TIMEOUT", "5s"))
	if err != nil {
		return fmt.Errorf("invalid DB_PING_TIMEOUT: %w", err)
	}
	c.Database.MaxOpenConns = maxOpen
	c.Database.MaxIdleConns = maxIdle
	c.Database.ConnectTimeout = connectTimeout
	c.Database.PingTimeout = pingTimeout
	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "5000"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	c.Server.PublicBaseURL = strings.TrimRight(
		getEnvOrDefault("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/")
	return nil
}

func (c *Config) loadSecurity() {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
	c.Security.JWTIssuer = os.Getenv("JWT_ISSUER")
	c.Security.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	c.Security.ShareSecret = os.Getenv("SHARE_SECRET")
	if c.Security.ShareSecret == "" && !c.IsProduction() {
		c.Security.ShareSecret = c.Security.JWTSecret
	}
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
		return
	}
	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadStorage() error {
	c.Storage.UploadDir = getEnvOrDefault("UPLOAD_DIR", "uploads")

	maxBytes, err := strconv.ParseInt(getEnvOrDefault("MAX_UPLOAD_BYTES", strconv.Itoa(defaultMaxUploadBytes)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	c.Storage.MaxUploadBytes = maxBytes

	interval, err := time.ParseDuration(getEnvOrDefault("TMP_CLEANUP_INTERVAL", "0"))
	if err != nil {
		return fmt.Errorf("invalid TMP_CLEANUP_INTERVAL: %w", err)
	}
	c.Storage.CleanupInterval = interval

	maxAge, err := time.ParseDuration(getEnvOrDefault("TMP_MAX_AGE", "1h"))
	if err != nil {
		return fmt.Errorf("invalid TMP_MAX_AGE: %w", err)
	}
	c.Storage.CleanupMaxAge = maxAge
	return nil
}

func (c *Config) loadRateLimit() error {
	rps, err := strconv.ParseFloat(getEnvOrDefault("RATE_LIMIT_RPS", "0"), 64)
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_BURST", "20"))
	if err != nil {
		return fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}
	c.RateLimit = RateLimitConfig{RPS: rps, Burst: burst}
	return nil
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Database.URL == "" && !c.InMemory {
		errors = append(errors, "DATABASE_URL is required (or DB_USER, DB_NAME) unless running with --memory")
	}

	if c.Database.MaxOpenConns < 1 {
		errors = append(errors, "DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		errors = append(errors, "DB_MAX_IDLE_CONNS must not be negative")
	}
	if c.Database.ConnectTimeout <= 0 || c.Database.PingTimeout <= 0 {
		errors = append(errors, "DB_CONNECT_TIMEOUT and DB_PING_TIMEOUT must be positive")
	}

	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.ShareSecret == "" {
		errors = append(errors, "SHARE_SECRET is required in production")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.Storage.MaxUploadBytes <= 0 {
		errors = append(errors, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.Storage.CleanupInterval < 0 {
		errors = append(errors, "TMP_CLEANUP_INTERVAL must not be negative")
	}

	if c.RateLimit.RPS < 0 {
		errors = append(errors, "RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errors = append(errors, "RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(os.Getenv("ENV"), "production")
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
