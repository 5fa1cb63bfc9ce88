package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Server    ServerConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis settings for the live audit feed.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret    string //nolint:gosec // G117: JWT signing secret config
	AccessTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// AuditConfig holds signing and versioning settings.
type AuditConfig struct {
	// SigningSecret is used only when the stored signing key cannot be read.
	SigningSecret string //nolint:gosec // G117: fallback HMAC secret
	// SettingsKey is a 32-byte hex key sealing the stored signing key.
	SettingsKey string //nolint:gosec // G117: at-rest sealing key
	// TrackedTables limits which tables may be rolled back. Empty allows all.
	TrackedTables []string
}

// RateLimitConfig bounds API requests per tenant. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	return load(true)
}

// LoadOffline is Load for tools that never issue or check tokens; the JWT
// secret is optional.
func LoadOffline() (*Config, error) {
	return load(false)
}

func load(requireJWT bool) (*Config, error) {
	dbPort, err := getEnvInt("TRAIL_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("TRAIL_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisEnabled, err := getEnvBool("TRAIL_REDIS_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("TRAIL_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("TRAIL_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("TRAIL_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("TRAIL_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rps, err := getEnvFloat("TRAIL_RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	burst, err := getEnvInt("TRAIL_RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("TRAIL_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("TRAIL_DB_USER", "trail"),
			Password: getEnv("TRAIL_DB_PASSWORD", ""),
			DBName:   getEnv("TRAIL_DB_NAME", "trail_dev"),
			SSLMode:  getEnv("TRAIL_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Enabled:  redisEnabled,
			Addr:     getEnv("TRAIL_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("TRAIL_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:    getEnv("TRAIL_JWT_SECRET", ""),
			AccessTTL: accessTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("TRAIL_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("TRAIL_CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Audit: AuditConfig{
			SigningSecret: getEnv("TRAIL_SIGNING_SECRET", ""),
			SettingsKey:   getEnv("TRAIL_SETTINGS_KEY", ""),
			TrackedTables: getEnvList("TRAIL_TRACKED_TABLES", nil),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Log: LogConfig{
			Level:  getEnv("TRAIL_LOG_LEVEL", "info"),
			Format: getEnv("TRAIL_LOG_FORMAT", "json"),
		},
	}

	err = cfg.validate(requireJWT)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate(requireJWT bool) error {
	if requireJWT || c.JWT.Secret != "" {
		if c.JWT.Secret == "" {
			return errors.New("TRAIL_JWT_SECRET is required")
		}
		if len(c.JWT.Secret) < 32 {
			return errors.New("TRAIL_JWT_SECRET must be at least 32 characters")
		}
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("TRAIL_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TRAIL_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TRAIL_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("TRAIL_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TRAIL_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TRAIL_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	if c.Audit.SettingsKey != "" {
		key, err := hex.DecodeString(c.Audit.SettingsKey)
		if err != nil || len(key) != 32 {
			return errors.New("TRAIL_SETTINGS_KEY must be 64 hex characters (32 bytes)")
		}
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("TRAIL_RATE_LIMIT_RPS must be >= 0, got %g", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("TRAIL_RATE_LIMIT_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("TRAIL_LOG_LEVEL %q is not a valid level", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TRAIL_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
