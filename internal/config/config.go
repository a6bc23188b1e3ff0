package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me"

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	LogLevel       string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	SQLitePath string

	RedisURL string

	JWTSecret             string
	JWTTTL                time.Duration
	AdminRegistrationCode string

	LoanPeriod    time.Duration
	AuditCron     string
	StatsCacheTTL time.Duration

	RateLimitBorrow    time.Duration
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASS"),
		DBName:     getEnv("DB_NAME", "librarydesk"),
		DBPort:     getEnv("DB_PORT", "5432"),
		SQLitePath: getEnv("SQLITE_PATH", "data/library.db"),

		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:             getEnv("JWT_SECRET", defaultJWTSecret),
		AdminRegistrationCode: os.Getenv("ADMIN_REGISTRATION_CODE"),
		AuditCron:             getEnv("AUDIT_CRON", "@every 1h"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "librarydesk"),
	}

	ttlMinutes, err := strconv.Atoi(getEnv("JWT_TTL_MINUTES", "60"))
	if err != nil || ttlMinutes <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: %q", os.Getenv("JWT_TTL_MINUTES"))
	}
	cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute

	loanDays, err := strconv.Atoi(getEnv("LOAN_PERIOD_DAYS", "14"))
	if err != nil || loanDays <= 0 {
		return nil, fmt.Errorf("invalid LOAN_PERIOD_DAYS: %q", os.Getenv("LOAN_PERIOD_DAYS"))
	}
	cfg.LoanPeriod = time.Duration(loanDays) * 24 * time.Hour

	cfg.StatsCacheTTL, err = time.ParseDuration(getEnv("STATS_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL: %w", err)
	}
	cfg.RateLimitBorrow, err = time.ParseDuration(getEnv("RATE_LIMIT_BORROW", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BORROW: %w", err)
	}

	cfg.AuthRateLimitRPS, err = strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_RPS: %w", err)
	}
	cfg.AuthRateLimitBurst, err = strconv.Atoi(getEnv("AUTH_RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT_BURST: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.AppEnv {
	case "development", "production", "test":
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.AppEnv)
	}

	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.DBDriver)
	}

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst <= 0 {
		return errors.New("auth rate limit must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
