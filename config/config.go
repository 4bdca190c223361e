package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	BackendURL         string          `yaml:"backend_url"`
	Port               string          `yaml:"port"`
	LogLevel           string          `yaml:"log_level"`
	StoragePath        string          `yaml:"storage_path"`
	DeliveryFee        decimal.Decimal `yaml:"delivery_fee"`
	Currency           string          `yaml:"currency"`
	RequestTimeout     time.Duration   `yaml:"request_timeout"`
	ReconcileOnFailure bool            `yaml:"reconcile_on_failure"`
	RabbitMQURL        string          `yaml:"rabbitmq_url"`
	RabbitMQQueue      string          `yaml:"rabbitmq_queue"`
	ChannelPoolSize    int             `yaml:"channel_pool_size"`
	MockBackendPort    string          `yaml:"mock_backend_port"`
}

func DefaultConfig() *Config {
	return &Config{
		BackendURL:         "http://localhost:3000",
		Port:               "8080",
		LogLevel:           "info",
		StoragePath:        "storefront.db",
		DeliveryFee:        decimal.NewFromInt(10),
		Currency:           "R",
		RequestTimeout:     10 * time.Second,
		ReconcileOnFailure: true,
		RabbitMQQueue:      "order_events",
		ChannelPoolSize:    2,
		MockBackendPort:    "3000",
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty or missing), then environment variables.
// Variables from a .env file in the working directory are loaded first and
// never replace variables already set.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.StoragePath = getEnv("STORAGE_PATH", c.StoragePath)
	c.DeliveryFee = getEnvAsDecimal("DELIVERY_FEE", c.DeliveryFee)
	c.Currency = getEnv("CURRENCY", c.Currency)
	c.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ReconcileOnFailure = getEnvAsBool("RECONCILE_ON_FAILURE", c.ReconcileOnFailure)
	c.RabbitMQURL = getEnv("RABBITMQ_URL", c.RabbitMQURL)
	c.RabbitMQQueue = getEnv("RABBITMQ_QUEUE", c.RabbitMQQueue)
	c.ChannelPoolSize = getEnvAsInt("CHANNEL_POOL_SIZE", c.ChannelPoolSize)
	c.MockBackendPort = getEnv("MOCK_BACKEND_PORT", c.MockBackendPort)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("backend_url is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.DeliveryFee.IsNegative() {
		return fmt.Errorf("delivery_fee must not be negative, got %s", c.DeliveryFee)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.ChannelPoolSize < 1 {
		return fmt.Errorf("channel_pool_size must be at least 1, got %d", c.ChannelPoolSize)
	}
	return nil
}

// PublishOrders reports whether order events go to a broker.
func (c *Config) PublishOrders() bool {
	return c.RabbitMQURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
