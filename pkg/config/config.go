package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Gemini        GeminiConfig
	Assistant     AssistantConfig
	Storage       StorageConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	DefaultCurrency    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       string
}

// AssistantConfig bounds the AI assistant pipeline.
type AssistantConfig struct {
	ContextTransactionLimit int
	ContextMaxBytes         int
	ContextTTL              time.Duration
	HistoryLimit            int
	GatewayTimeout          time.Duration
}

type StorageConfig struct {
	Backend   string
	LocalPath string
	GCSBucket string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read returns the environment configuration without validating it. Tools that
// only need the database and auth sections use it directly.
func Read() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 40),
			AllowedOrigins:     []string{getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000")},
			DefaultCurrency:    getEnv("DEFAULT_CURRENCY", "EUR"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "finance-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
			Issuer:    getEnv("JWT_ISSUER", "finance-assistant"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Assistant: AssistantConfig{
			ContextTransactionLimit: getEnvAsInt("ASSISTANT_CONTEXT_TX_LIMIT", 50),
			ContextMaxBytes:         getEnvAsInt("ASSISTANT_CONTEXT_MAX_BYTES", 16*1024),
			ContextTTL:              getEnvAsDuration("ASSISTANT_CONTEXT_TTL", 24*time.Hour),
			HistoryLimit:            getEnvAsInt("ASSISTANT_HISTORY_LIMIT", 20),
			GatewayTimeout:          getEnvAsDuration("ASSISTANT_GATEWAY_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			GCSBucket: getEnv("STORAGE_GCS_BUCKET", ""),
		},
	}
}

// defaultJWTSecret lets Read work for local tools. Load refuses it.
const defaultJWTSecret = "changeme"

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Gemini.Model == "" {
		return errors.New("GEMINI_MODEL is required")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET is required and must not be the development default")
	}
	if c.Assistant.ContextTransactionLimit <= 0 {
		return fmt.Errorf("ASSISTANT_CONTEXT_TX_LIMIT must be positive, got %d", c.Assistant.ContextTransactionLimit)
	}
	if c.Assistant.ContextMaxBytes < 1024 {
		return fmt.Errorf("ASSISTANT_CONTEXT_MAX_BYTES must be at least 1024, got %d", c.Assistant.ContextMaxBytes)
	}
	if c.Assistant.GatewayTimeout <= 0 {
		return errors.New("ASSISTANT_GATEWAY_TIMEOUT must be positive")
	}
	if c.Storage.Backend == "gcs" && c.Storage.GCSBucket == "" {
		return errors.New("STORAGE_GCS_BUCKET is required for the gcs backend")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns the listen address for the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
