// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zxc1031408077/line-bot-ordering/internal/cart"
	"github.com/zxc1031408077/line-bot-ordering/internal/orders"
	"github.com/zxc1031408077/line-bot-ordering/internal/pricing"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPPort string
	GRPCPort string
	AppEnv   string
	LogLevel string

	CatalogDBPath         string
	CatalogReloadInterval time.Duration

	CartStore string
	Mongo     cart.MongoSettings

	OrderStore string
	Postgres   orders.Credentials

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string
	// KafkaConsumerGroup enables the in-process status event consumer.
	KafkaConsumerGroup string

	LineChannelSecret string

	Pricing  pricing.Policy
	Currency string

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func Load() (*Config, error) {
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvDecimal("FREE_DELIVERY_THRESHOLD", decimal.NewFromInt(300))
	if err != nil {
		return nil, err
	}
	fee, err := getEnvDecimal("DELIVERY_FEE", decimal.NewFromInt(30))
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	reloadInterval, err := getEnvDuration("CATALOG_RELOAD_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	mongoConnect, err := getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	mongoSelect, err := getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	mongoMaxPool, err := getEnvInt("MONGO_MAX_POOL_SIZE", 20)
	if err != nil {
		return nil, err
	}
	mongoMinPool, err := getEnvInt("MONGO_MIN_POOL_SIZE", 2)
	if err != nil {
		return nil, err
	}
	if mongoMaxPool < 1 || mongoMinPool < 0 || mongoMinPool > mongoMaxPool {
		return nil, fmt.Errorf("mongo pool sizes must satisfy 0 <= MONGO_MIN_POOL_SIZE <= MONGO_MAX_POOL_SIZE, MONGO_MAX_POOL_SIZE >= 1")
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		GRPCPort:              getEnv("GRPC_PORT", "50057"),
		AppEnv:                getEnv("APP_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./restaurant.db"),
		CatalogReloadInterval: reloadInterval,
		CartStore:             strings.ToLower(getEnv("CART_STORE", StoreMemory)),
		Mongo: cart.MongoSettings{
			URI:                    getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGO_DB_NAME", "ordering"),
			ConnectTimeout:         mongoConnect,
			ServerSelectionTimeout: mongoSelect,
			MaxPoolSize:            uint64(mongoMaxPool),
			MinPoolSize:            uint64(mongoMinPool),
		},
		OrderStore: strings.ToLower(getEnv("ORDER_STORE", StoreMemory)),
		Postgres: orders.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ordering"),
		},
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "order-status"),
		KafkaConsumerGroup: os.Getenv("KAFKA_CONSUMER_GROUP"),
		LineChannelSecret:  os.Getenv("LINE_CHANNEL_SECRET"),
		Pricing: pricing.Policy{
			FreeDeliveryThreshold: threshold,
			FlatFee:               fee,
		},
		Currency:           getEnv("CURRENCY", orders.DefaultCurrency),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		MaxRequestBodySize: 1 << 20, // 1MB
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CartStore {
	case StoreMemory, StoreMongo:
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", StoreMemory, StoreMongo, c.CartStore)
	}
	switch c.OrderStore {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("ORDER_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.OrderStore)
	}
	if c.Pricing.FlatFee.IsNegative() || c.Pricing.FreeDeliveryThreshold.IsNegative() {
		return fmt.Errorf("delivery fee and threshold must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
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
