package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	MaxUploadSize      int64

	DBDriver       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	SQLitePath     string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string

	SessionSecret string
	JWTSecret     string
	AdminAPIKey   string
	MediaDir      string
	LogMode       string
}

// devSessionSecret signs session cookies only when LOG_MODE=development.
const devSessionSecret = "dev-only-session-secret-32bytes!"

// ErrMissingSessionSecret is returned by Validate outside development mode
// when SESSION_SECRET is not set.
var ErrMissingSessionSecret = errors.New("SESSION_SECRET must be set outside development mode")

func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	driver := getEnv("DB_DRIVER", "sqlite")
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20,  // 1MB
		MaxUploadSize:      10 << 20, // 10MB

		DBDriver:       driver,
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnvAsInt("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "storefront"),
		DBPassword:     getEnv("DB_PASSWORD", "storefront"),
		DBName:         getEnv("DB_NAME", "storefront"),
		SQLitePath:     getEnv("SQLITE_PATH", "storefront.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations/"+driver),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  getEnvAsList("KAFKA_BROKERS"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),
		MediaDir:      getEnv("MEDIA_DIR", "media"),
		LogMode:       getEnv("LOG_MODE", "production"),
	}
	if cfg.SessionSecret == "" && cfg.LogMode == "development" {
		cfg.SessionSecret = devSessionSecret
	}
	return cfg
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return ErrMissingSessionSecret
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
