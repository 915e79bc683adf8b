package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Email    EmailConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address string // listen address (e.g., ":8080")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string // JWT signing secret
}

// RedisConfig contains the live-connection directory settings.
type RedisConfig struct {
	Addr string // host:port; empty disables the live channel
}

// KafkaConfig contains the lifecycle event stream settings.
type KafkaConfig struct {
	Brokers []string // empty disables event publishing
	Topic   string
}

// EmailConfig contains the best-effort email channel settings.
type EmailConfig struct {
	SendGridKey string // empty disables email
	FromAddress string
	FromName    string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := loadFromEnv()
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg := loadFromEnv()
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

func loadFromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "app.db"),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "order.lifecycle"),
		},
		Email: EmailConfig{
			SendGridKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Food Delivery"),
		},
	}
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, Redis: %s, Kafka: %v, Auth: *** (masked) ***}",
		c.Database.Path, c.HTTP.Address, c.Redis.Addr, c.Kafka.Brokers)
}
